// Command siar-pack packs a set of input files into a single .ar archive,
// one entry per file, named after the file's base name.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/distr1/siswa/ar"
)

const packHelp = `siar-pack [-flags] <file> [<file>...]

Pack one or more files into a single .ar archive.

Example:
  % siar-pack -out=pack.ar.00 area22_enemyset.set.xml area03_gimmickset.set.xml
`

func usage(fset *flag.FlagSet) func() {
	return func() {
		fmt.Fprint(os.Stderr, packHelp)
		fmt.Fprintln(os.Stderr, "Flags:")
		fset.PrintDefaults()
	}
}

func funcmain() error {
	var (
		out      = flag.String("out", "pack.ar.00", "path to write the packed archive to")
		capacity = flag.Int("capacity", 0, "archive buffer capacity in bytes (0: size from input files plus headroom)")
	)
	flag.Usage = usage(flag.CommandLine)
	flag.Parse()

	paths := flag.Args()
	if len(paths) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	type fileInfo struct {
		name string
		data []byte
	}
	files := make([]fileInfo, 0, len(paths))
	total := 0
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		name := filepath.Base(p)
		files = append(files, fileInfo{name: name, data: data})
		total += ar.EntryRecordSize + len(name) + 1 + len(data)
	}

	capBytes := *capacity
	if capBytes == 0 {
		capBytes = ar.HeaderSize + total + 4096
	}
	a, err := ar.NewEmpty(capBytes)
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := a.Add(f.name, f.data); err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
	}

	h := a.Handle()
	if err := os.WriteFile(*out, h.Data[:h.Length], 0644); err != nil {
		return err
	}
	log.Printf("wrote %s (%d entries, %d bytes)", *out, a.EntryCount(), h.Length)
	return nil
}

func main() {
	if err := funcmain(); err != nil {
		log.Fatal(err)
	}
}
