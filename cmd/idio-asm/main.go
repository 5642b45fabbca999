// Command idio-asm is a small front-end over the code generator and
// constants table, in the spirit of the teacher pack's pedumper: "emit"
// assembles a handful of canned opcode sequences into a fresh code buffer
// and prints it hex-dumped; "dis" reads a previously emitted dump back and
// prints the decoded opcode stream.
package main

import (
	"encoding/hex"
	"fmt"
	"io/ioutil"
	"os"

	"github.com/spf13/cobra"

	"github.com/jcorbin/idio/codegen"
	"github.com/jcorbin/idio/constants"
	"github.com/jcorbin/idio/iabuf"
	"github.com/jcorbin/idio/value"
	"github.com/jcorbin/idio/varuint"
)

var outFile string

func emitPrologueAndConstants() *codegen.Emitter {
	e := codegen.New(iabuf.New(0), constants.New(nil))
	if _, err := e.WritePrologue(true); err != nil {
		panic(err)
	}
	e.EmitConstantRef(value.Fixnum(0))
	e.EmitConstantRef(value.Fixnum(1))
	e.EmitConstantRef(value.Bool(true))
	_ = e.EmitArgumentRef(0)
	_ = e.EmitArgumentRef(4)
	return e
}

func runEmit(cmd *cobra.Command, args []string) error {
	e := emitPrologueAndConstants()
	dump := hex.EncodeToString(e.Buf.Bytes())
	if outFile != "" {
		return ioutil.WriteFile(outFile, []byte(dump+"\n"), 0644)
	}
	fmt.Println(dump)
	return nil
}

func runDis(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("dis: exactly one hex-dump argument or file required")
	}
	raw := args[0]
	if data, err := ioutil.ReadFile(raw); err == nil {
		raw = string(data)
	}
	bs, err := hex.DecodeString(trimNewline(raw))
	if err != nil {
		return fmt.Errorf("dis: %w", err)
	}
	disassemble(bs)
	return nil
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

// disassemble prints a crude PC-prefixed opcode trace -- enough to verify
// emitted bytes round-trip meaningfully, not a full VM decoder (the VM's
// own fetch loop is out of scope here).
func disassemble(bs []byte) {
	pc := 0
	for pc < len(bs) {
		op := codegen.Op(bs[pc])
		fmt.Printf("%04d  %s\n", pc, op)
		pc++
		switch op {
		case codegen.OpConstant, codegen.OpPredefined:
			_, n, err := varuint.Decode(bs[pc:])
			if err != nil {
				fmt.Printf("      <truncated: %v>\n", err)
				return
			}
			pc += n
		case codegen.OpShallowArgumentRef, codegen.OpShallowArgumentSet:
			_, n, err := varuint.Decode(bs[pc:])
			if err != nil {
				fmt.Printf("      <truncated: %v>\n", err)
				return
			}
			pc += n
		case codegen.OpDeepArgumentRef, codegen.OpDeepArgumentSet:
			for i := 0; i < 2; i++ {
				_, n, err := varuint.Decode(bs[pc:])
				if err != nil {
					fmt.Printf("      <truncated: %v>\n", err)
					return
				}
				pc += n
			}
		}
	}
}

func main() {
	root := &cobra.Command{
		Use:   "idio-asm",
		Short: "Assemble and disassemble bytecode fragments built by the code generator",
	}

	emitCmd := &cobra.Command{
		Use:   "emit",
		Short: "Emit a canned bytecode fragment and print it hex-encoded",
		RunE:  runEmit,
	}
	emitCmd.Flags().StringVarP(&outFile, "out", "o", "", "write the hex dump to a file instead of stdout")

	disCmd := &cobra.Command{
		Use:   "dis [hex-dump-or-file]",
		Short: "Disassemble a hex-encoded bytecode fragment",
		Args:  cobra.ExactArgs(1),
		RunE:  runDis,
	}

	root.AddCommand(emitCmd, disCmd)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
