// Command siar-unpack extracts every entry of a .ar archive to disk,
// transparently decompressing SEGS- or XCompression-wrapped archives first.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/distr1/siswa/ar"
	"github.com/distr1/siswa/container"
	"github.com/distr1/siswa/segs"
	"github.com/distr1/siswa/xcomp"
)

const unpackHelp = `siar-unpack [-flags] <archive>

Unpack every entry of a .ar archive into a directory.

Example:
  % siar-unpack -out-dir=extracted res/pan.ar.00
`

func usage(fset *flag.FlagSet) func() {
	return func() {
		fmt.Fprint(os.Stderr, unpackHelp)
		fmt.Fprintln(os.Stderr, "Flags:")
		fset.PrintDefaults()
	}
}

func openArchive(path string) (*ar.Archive, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	h := container.NewOwned(raw, 0)

	switch h.Kind {
	case container.Regular:
		return ar.Open(h)
	case container.Segs, container.XCompressed:
		size, err := container.DecompressedSize(h)
		if err != nil {
			return nil, err
		}
		out := make([]byte, size)
		var decompressed *container.Handle
		if h.Kind == container.Segs {
			decompressed, err = segs.Decompress(h, out)
		} else {
			decompressed, err = xcomp.Decompress(h, out)
		}
		if err != nil {
			return nil, fmt.Errorf("decompress %s: %w", path, err)
		}
		return ar.Open(decompressed)
	default:
		return nil, container.ErrWrongKind
	}
}

func funcmain() error {
	outDir := flag.String("out-dir", ".", "directory to write extracted entries to")
	flag.Usage = usage(flag.CommandLine)
	flag.Parse()

	args := flag.Args()
	if len(args) != 1 {
		flag.Usage()
		os.Exit(2)
	}

	a, err := openArchive(args[0])
	if err != nil {
		return err
	}

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		return err
	}

	n := 0
	for {
		e, ok := a.Poll()
		if !ok {
			break
		}
		name := string(e.Name())
		dest := filepath.Join(*outDir, filepath.Base(name))
		if err := os.WriteFile(dest, e.Data(), 0644); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		n++
	}
	log.Printf("unpacked %d entries into %s", n, *outDir)
	return nil
}

func main() {
	if err := funcmain(); err != nil {
		log.Fatal(err)
	}
}
