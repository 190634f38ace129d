// Command asm is the assembler front end: it reads an assembly source
// file and writes the corresponding 32-character '0'/'1' machine-code
// lines to an output file, printing per-line diagnostics to standard
// error as it goes. Individual line errors do not affect the process
// exit status; only a fatal I/O failure does.
package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/rv32toy/rv32toy/pkg/asm"
)

func main() {
	log.SetFlags(0)

	cmd := &cobra.Command{
		Use:   "asm <input.asm> <output.bin>",
		Short: "Assemble RV32-subset assembly source into textual machine code",
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

	out, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer out.Close()

	for line := range asm.StartAssembler(in) {
		if line.Err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", line.Err)
			if errors.Is(line.Err, asm.ErrIO) {
				return line.Err
			}
			continue
		}
		fmt.Fprintln(out, line.Word)
	}
	return nil
}
