// Command siar-merge combines several .ar archives into one, deduplicating
// entry names (first archive wins), and writes a matching .arl linker file
// alongside the merged archive.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/distr1/siswa/ar"
	"github.com/distr1/siswa/arl"
	"github.com/distr1/siswa/container"
	"github.com/distr1/siswa/merge"
)

const mergeHelp = `siar-merge [-flags] <archive> [<archive>...]

Merge several .ar archives into one, generating a sibling .arl linker.

Example:
  % siar-merge -out=result.ar.00 test.ar.00 gimmickSet.ar.00 anotherGimmickSet.ar.00
`

func usage(fset *flag.FlagSet) func() {
	return func() {
		fmt.Fprint(os.Stderr, mergeHelp)
		fmt.Fprintln(os.Stderr, "Flags:")
		fset.PrintDefaults()
	}
}

// readArchives opens every path concurrently, preserving input order in the
// returned slice regardless of completion order.
func readArchives(ctx context.Context, paths []string) ([]*ar.Archive, error) {
	archives := make([]*ar.Archive, len(paths))
	eg, _ := errgroup.WithContext(ctx)
	for i, p := range paths {
		i, p := i, p
		eg.Go(func() error {
			raw, err := os.ReadFile(p)
			if err != nil {
				return err
			}
			h := container.NewOwned(raw, 0)
			a, err := ar.Open(h)
			if err != nil {
				return fmt.Errorf("%s: %w", p, err)
			}
			archives[i] = a
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return archives, nil
}

func funcmain() error {
	out := flag.String("out", "result.ar.00", "path to write the merged archive to")
	flag.Usage = usage(flag.CommandLine)
	flag.Parse()

	paths := flag.Args()
	if len(paths) < 1 {
		flag.Usage()
		os.Exit(2)
	}

	archives, err := readArchives(context.Background(), paths)
	if err != nil {
		return err
	}

	total := 0
	for _, p := range paths {
		fi, err := os.Stat(p)
		if err != nil {
			return err
		}
		total += int(fi.Size())
	}
	outBuf := make([]byte, 0, total+4096)
	outBuf = outBuf[:cap(outBuf)]

	merged, err := merge.Many(archives, outBuf)
	if err != nil {
		return err
	}

	mh := merged.Handle()
	if err := os.WriteFile(*out, mh.Data[:mh.Length], 0644); err != nil {
		return err
	}

	l, err := arl.CreateFromArchive(merged, mh.Length+4096)
	if err != nil {
		return err
	}
	lh := l.Handle()
	arlBase := *out
	if ext := filepath.Ext(arlBase); ext != ".ar" {
		arlBase = strings.TrimSuffix(arlBase, ext)
	}
	arlPath := arlBase + "l"
	if err := os.WriteFile(arlPath, lh.Data[:lh.Length], 0644); err != nil {
		return err
	}

	log.Printf("merged %d archives into %s (%d entries) and %s", len(paths), *out, merged.EntryCount(), arlPath)
	return nil
}

func main() {
	if err := funcmain(); err != nil {
		log.Fatal(err)
	}
}
