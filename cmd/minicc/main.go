// minicc compiles MiniC files from the host filesystem and dumps what the
// front end saw. Useful for poking at programs without booting a session.
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/pflag"

	"github.com/imxcstar/mini-os/loader"
	"github.com/imxcstar/mini-os/minic"
)

var (
	fInclude = pflag.StringSliceP("include", "I", nil, "system include directories")
	fAST     = pflag.BoolP("ast", "a", false, "dump the full AST")
)

func main() {
	pflag.Parse()

	args := pflag.Args()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: minicc [-I dir] [--ast] file.c ...")
		os.Exit(2)
	}

	for _, path := range args {
		if err := dump(path); err != nil {
			log.Fatal(err)
		}
	}
}

func dump(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	resolver := &loader.HostResolver{
		IncludeDirs: includeDirs(path),
	}

	prog, err := minic.Compile(filepath.ToSlash(path), string(data), minic.Options{
		Resolver: resolver,
	})
	if err != nil {
		return err
	}

	if *fAST {
		spew.Dump(prog)
		return nil
	}

	fmt.Printf("\n[globals]\n")

	tr := tabwriter.NewWriter(os.Stdout, 4, 8, 1, ' ', 0)
	for _, g := range prog.Globals {
		fmt.Fprintf(tr, "  %s\t%s\tline=%d\n", g.Name, g.Type, g.Line)
	}
	tr.Flush()

	fmt.Printf("\n[functions]\n")

	names := make([]string, 0, len(prog.Functions))
	for name := range prog.Functions {
		names = append(names, name)
	}
	sort.Strings(names)

	tr = tabwriter.NewWriter(os.Stdout, 4, 8, 1, ' ', 0)
	for _, name := range names {
		fn := prog.Functions[name]

		kind := "defined"
		if !fn.HasBody {
			kind = "prototype"
		}

		fmt.Fprintf(tr, "  %s\t%s\targs=%d\t%s\tline=%d\n",
			fn.Name, fn.Return, len(fn.Params), kind, fn.Line)
	}
	tr.Flush()

	return nil
}

// includeDirs builds the search path: explicit -I dirs first, then the
// file's own directory and an include/ sibling.
func includeDirs(path string) []string {
	dirs := append([]string(nil), *fInclude...)

	base := filepath.Dir(path)
	dirs = append(dirs, base, filepath.Join(base, "include"))

	return dirs
}
