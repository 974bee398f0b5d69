// Clockwork is the CLI driver for the Clockwork bytecode VM: a thin
// collaborator outside the core (spec.md §1 "Out of scope: file I/O
// and the REPL driver; program entry point argument handling"), built
// the way the teacher's cmd/smog/main.go dispatches its subcommands.
package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kristofer/clockwork/internal/clockworkerr"
	"github.com/kristofer/clockwork/pkg/chunk"
	"github.com/kristofer/clockwork/pkg/compiler"
	"github.com/kristofer/clockwork/pkg/persist"
	"github.com/kristofer/clockwork/pkg/value"
	"github.com/kristofer/clockwork/pkg/vm"
)

const version = "0.1"

func main() {
	if len(os.Args) < 2 {
		runREPL()
		return
	}

	switch os.Args[1] {
	case "version", "-v", "--version":
		fmt.Printf("Clockwork v%s\n", version)
	case "help", "-h", "--help":
		printUsage()
	case "repl":
		runREPL()
	case "run":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Error: no file specified")
			printUsage()
			os.Exit(74)
		}
		os.Exit(runFile(os.Args[2]))
	case "compile":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Error: no file specified")
			fmt.Fprintln(os.Stderr, "\nUsage: clockwork compile <input.ck> [output.ckb]")
			os.Exit(74)
		}
		outputFile := ""
		if len(os.Args) >= 4 {
			outputFile = os.Args[3]
		}
		os.Exit(compileFile(os.Args[2], outputFile))
	case "disassemble", "disasm":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Error: no file specified")
			fmt.Fprintln(os.Stderr, "\nUsage: clockwork disassemble <file.ckb>")
			os.Exit(74)
		}
		os.Exit(disassembleFile(os.Args[2]))
	default:
		os.Exit(runFile(os.Args[1]))
	}
}

func printUsage() {
	fmt.Println("Clockwork - a small bytecode-compiled scripting language")
	fmt.Println("\nUsage:")
	fmt.Println("  clockwork                        Start the interactive REPL")
	fmt.Println("  clockwork [file]                 Run a .ck or .ckb file")
	fmt.Println("  clockwork run [file]              Run a .ck or .ckb file")
	fmt.Println("  clockwork compile <in> [out]      Compile .ck to .ckb bytecode")
	fmt.Println("  clockwork disassemble <file.ckb>  Disassemble a .ckb file")
	fmt.Println("  clockwork repl                     Start the interactive REPL")
	fmt.Println("  clockwork version                  Show version")
	fmt.Println("  clockwork help                     Show this help")
	fmt.Println("\nFile extensions:")
	fmt.Println("  .ck    Source files (text)")
	fmt.Println("  .ckb   Compiled bytecode files (binary)")
}

// runFile runs a .ck source file or a .ckb bytecode file, dispatching
// on extension the way the teacher's runFile does for .smog vs .sg,
// and returns the process exit code spec.md §6/§7 pins: 0 success, 65
// compile error, 70 runtime error, 74 I/O error.
func runFile(filename string) int {
	if filepath.Ext(filename) == ".ckb" {
		return runBytecodeFile(filename)
	}
	return runSourceFile(filename)
}

func runSourceFile(filename string) int {
	data, err := os.ReadFile(filename)
	if err != nil {
		return reportHostError(err)
	}

	v := vm.New()
	v.DefineStandardNatives()
	err = v.Interpret(string(data))
	return reportAndExitCode(err)
}

func runBytecodeFile(filename string) int {
	file, err := os.Open(filename)
	if err != nil {
		return reportHostError(err)
	}
	defer file.Close()

	v := vm.New()
	v.DefineStandardNatives()
	fn, err := persist.Decode(file, v.Objects())
	if err != nil {
		return reportHostError(err)
	}

	return reportAndExitCode(v.Run(fn))
}

// reportHostError wraps an I/O failure in a clockworkerr.HostError —
// attaching a stack at the point the host driver observed it — prints
// it, and returns the exit code §7 assigns host failures.
func reportHostError(err error) int {
	fmt.Fprintln(os.Stderr, clockworkerr.NewHostError(err).Error())
	return 74
}

// reportAndExitCode prints err (if any) to stderr and maps it to the
// exit code spec.md §7 assigns its category.
func reportAndExitCode(err error) int {
	if err == nil {
		return 0
	}
	fmt.Fprintln(os.Stderr, err.Error())
	switch err.(type) {
	case *clockworkerr.CompileError:
		return 65
	case *clockworkerr.RuntimeError:
		return 70
	default:
		return 74
	}
}

// compileFile compiles a .ck source file to a .ckb bytecode file
// (SPEC_FULL.md §5's supplemented persistence feature), mirroring the
// teacher's compileFile default-output-name convention.
func compileFile(inputFile, outputFile string) int {
	if outputFile == "" {
		if filepath.Ext(inputFile) == ".ck" {
			outputFile = inputFile[:len(inputFile)-len(".ck")] + ".ckb"
		} else {
			outputFile = inputFile + ".ckb"
		}
	}

	data, err := os.ReadFile(inputFile)
	if err != nil {
		return reportHostError(err)
	}

	v := vm.New()
	fn, diagnostics := compiler.Compile(string(data), v.Objects())
	if diagnostics != nil {
		for _, d := range diagnostics {
			fmt.Fprintln(os.Stderr, d)
		}
		return 65
	}

	out, err := os.Create(outputFile)
	if err != nil {
		return reportHostError(err)
	}
	defer out.Close()

	if err := persist.Encode(fn, out); err != nil {
		return reportHostError(err)
	}

	fmt.Printf("Compiled %s -> %s\n", inputFile, outputFile)
	return 0
}

// disassembleFile prints a human-readable listing of every function in
// a .ckb file, top-level script first then each nested constant-pool
// function, the way the teacher's disassembleFile walks a decoded
// *bytecode.Bytecode.
func disassembleFile(filename string) int {
	file, err := os.Open(filename)
	if err != nil {
		return reportHostError(err)
	}
	defer file.Close()

	v := vm.New()
	fn, err := persist.Decode(file, v.Objects())
	if err != nil {
		return reportHostError(err)
	}

	fmt.Printf("=== Clockwork bytecode: %s ===\n\n", filename)
	disassembleFunction(fn)
	return 0
}

func disassembleFunction(fn *value.Object) {
	name := "<script>"
	if fn.Name != nil {
		name = fn.Name.Chars
	}
	chunk.Disassemble(os.Stdout, fn.Chunk, name, formatConstant)
	for _, entry := range fn.Chunk.Constants {
		if v, ok := entry.(value.Value); ok && v.IsObject() && v.AsObject().IsFunction() {
			fmt.Println()
			disassembleFunction(v.AsObject())
		}
	}
}

func formatConstant(c interface{}) string {
	v, ok := c.(value.Value)
	if !ok {
		return fmt.Sprintf("%v", c)
	}
	if v.IsObject() && v.AsObject().IsFunction() {
		fn := v.AsObject()
		name := "<script>"
		if fn.Name != nil {
			name = fn.Name.Chars
		}
		return fmt.Sprintf("<fn %s>", name)
	}
	return v.String()
}

// runREPL starts an interactive Read-Eval-Print Loop. Each line is
// compiled independently against the one persistent VM (DESIGN.md's
// resolution of spec.md's REPL open question): globals and the intern
// table persist across lines, but there is no cross-line local-scope
// or multi-line statement buffering — an incomplete line is just a
// compile error that the REPL reports and recovers from.
func runREPL() {
	fmt.Printf("Clockwork v%s\n", version)
	fmt.Println("Type Ctrl-D to exit.")

	v := vm.New()
	v.DefineStandardNatives()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(">>> ")
		if !scanner.Scan() {
			fmt.Println()
			return
		}
		line := scanner.Text()
		if line == "" {
			continue
		}
		if err := v.Interpret(line); err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
		}
	}
}
