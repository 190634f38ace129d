// Command vm is the simulator front end: it loads textual machine
// code, runs it to completion (virtual halt or instruction-memory
// overrun), and writes the resulting cycle trace plus memory dump to
// an output file.
package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/rv32toy/rv32toy/pkg/vm"
)

func main() {
	log.SetFlags(0)

	cmd := &cobra.Command{
		Use:   "vm <input.bin> <output.trace>",
		Short: "Run assembled RV32-subset machine code and record its trace",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args[0], args[1])
		},
	}

	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func run(inputPath, outputPath string) error {
	in, err := os.Open(inputPath)
	if err != nil {
		return err
	}
	defer in.Close()

	machine, err := vm.LoadProgram(in)
	if err != nil {
		return err
	}
	if err := machine.Run(); err != nil {
		return err
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer out.Close()

	return machine.WriteTrace(out)
}
