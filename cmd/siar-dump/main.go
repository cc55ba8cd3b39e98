// Command siar-dump decompresses a SEGS- or XCompression-wrapped .ar
// archive (or opens a plain one) and prints its entry table.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/distr1/siswa/ar"
	"github.com/distr1/siswa/container"
	"github.com/distr1/siswa/segs"
	"github.com/distr1/siswa/xcomp"
)

const dumpHelp = `siar-dump [-flags] <archive>

Decompress (if necessary) and list the entries of a .ar archive.

Example:
  % siar-dump -write-decompressed=output.ar.00 res/BossPetra.ar.00
`

func usage(fset *flag.FlagSet) func() {
	return func() {
		fmt.Fprint(os.Stderr, dumpHelp)
		fmt.Fprintln(os.Stderr, "Flags:")
		fset.PrintDefaults()
	}
}

func funcmain() error {
	writeDecompressed := flag.String("write-decompressed", "", "if set, write the decompressed archive to this path")
	flag.Usage = usage(flag.CommandLine)
	flag.Parse()

	args := flag.Args()
	if len(args) != 1 {
		flag.Usage()
		os.Exit(2)
	}
	path := args[0]

	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	h := container.NewOwned(raw, 0)

	size, err := container.DecompressedSize(h)
	if err != nil {
		return err
	}
	fmt.Printf("Compression info: kind=%s, decompressed size=%d bytes\n", h.Kind, size)

	regular := h
	switch h.Kind {
	case container.Segs:
		out := make([]byte, size)
		regular, err = segs.Decompress(h, out)
	case container.XCompressed:
		out := make([]byte, size)
		regular, err = xcomp.Decompress(h, out)
	case container.Regular:
		// already regular, nothing to do
	default:
		err = container.ErrWrongKind
	}
	if err != nil {
		return fmt.Errorf("decompress %s: %w", path, err)
	}

	if *writeDecompressed != "" {
		if err := os.WriteFile(*writeDecompressed, regular.Data[:regular.Length], 0644); err != nil {
			return err
		}
	}

	a, err := ar.Open(regular)
	if err != nil {
		return err
	}
	for {
		e, ok := a.Poll()
		if !ok {
			break
		}
		fmt.Printf("%s:\n\tSize: %d\n\tData size: %d\n\tData offset: %d\n",
			e.Name(), e.Size(), e.PayloadSize(), e.PayloadOffset())
	}
	log.Printf("%d entries", a.EntryCount())
	return nil
}

func main() {
	if err := funcmain(); err != nil {
		log.Fatal(err)
	}
}
