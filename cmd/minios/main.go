package main

import (
	"context"
	"fmt"
	"io"
	iofs "io/fs"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/pflag"

	"github.com/imxcstar/mini-os/kernel"
	"github.com/imxcstar/mini-os/loader"
	"github.com/imxcstar/mini-os/syscalls"
	"github.com/imxcstar/mini-os/vfs"
)

var (
	fRoot    = pflag.StringP("root", "r", "", "host directory to seed the filesystem from")
	fImage   = pflag.StringP("image", "i", "", "tar image to seed the filesystem from")
	fInclude = pflag.StringSliceP("include", "I", nil, "extra system include directories")
)

func main() {
	pflag.Parse()

	fs := vfs.New()

	if *fImage != "" {
		f, err := os.Open(*fImage)
		if err != nil {
			log.Fatal(err)
		}
		if err := fs.LoadTar(f); err != nil {
			log.Fatal(err)
		}
		f.Close()
	}

	if *fRoot != "" {
		if err := seed(fs, *fRoot); err != nil {
			log.Fatal(err)
		}
	}

	k, err := kernel.NewKernel(fs, newTermConsole())
	if err != nil {
		log.Fatal(err)
	}

	ld := loader.NewLoader(fs, loader.NewCache())
	if len(*fInclude) > 0 {
		ld.SetIncludeDirs(append(append([]string(nil), loader.DefaultIncludeDirs...), *fInclude...))
	}

	host := k.HostTask(os.Stdin, os.Stdout, os.Stderr)

	disp := &syscalls.Dispatcher{
		Kernel: k,
		Loader: ld,
		Host:   host,
	}

	if args := pflag.Args(); len(args) > 0 {
		os.Exit(runOnce(disp, host, args))
	}

	shell(disp, host, k)
}

// runOnce launches one program in the foreground and exits with its code.
func runOnce(d *syscalls.Dispatcher, host *kernel.Task, argv []string) int {
	p, err := d.Launch(host, argv, kernel.AttachForeground)
	if err != nil {
		fmt.Fprintf(os.Stderr, "minios: %s\n", err)
		return 1
	}

	code, err := p.Wait(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "minios: %s\n", err)
		return 1
	}

	return code
}

// shell is the interactive spawn prompt. Lines name a program in the
// filesystem plus its arguments; a trailing & leaves it in the background.
func shell(d *syscalls.Dispatcher, host *kernel.Task, k *kernel.Kernel) {
	ln := liner.NewLiner()
	defer ln.Close()

	ln.SetCtrlCAborts(true)

	for {
		line, err := ln.Prompt(host.Cwd().Path() + "> ")
		if err == liner.ErrPromptAborted {
			continue
		}
		if err == io.EOF {
			fmt.Println()
			return
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "minios: %s\n", err)
			return
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		ln.AppendHistory(line)

		if runBuiltin(host, k, fields) {
			continue
		}

		background := false
		if last := fields[len(fields)-1]; last == "&" {
			background = true
			fields = fields[:len(fields)-1]
			if len(fields) == 0 {
				continue
			}
		}

		argv := append([]string{resolveCommand(d, host, fields[0])}, fields[1:]...)

		attach := kernel.AttachForeground
		if background {
			attach = kernel.AttachBackground
		}

		p, err := d.Launch(host, argv, attach)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %s\n", fields[0], err)
			continue
		}

		if background {
			fmt.Printf("[%d] %s\n", p.Pid, p.Name)
			continue
		}

		code, err := p.Wait(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %s\n", p.Name, err)
			continue
		}
		if code != 0 {
			fmt.Fprintf(os.Stderr, "%s: exit %d\n", p.Name, code)
		}
	}
}

// runBuiltin handles the few commands the shell implements itself. Returns
// false when the line should spawn a program instead.
func runBuiltin(host *kernel.Task, k *kernel.Kernel, fields []string) bool {
	switch fields[0] {
	case "exit":
		os.Exit(0)

	case "cd":
		target := "/"
		if len(fields) > 1 {
			target = fields[1]
		}
		node, err := k.FS.Lookup(host.Cwd(), target)
		if err != nil || !node.IsDir() {
			fmt.Fprintf(os.Stderr, "cd: %s: no such directory\n", target)
			return true
		}
		host.Chdir(node)

	case "fg":
		pid, ok := parsePid(fields)
		if !ok {
			return true
		}
		if err := k.Input.BringToForeground(pid); err != nil {
			fmt.Fprintf(os.Stderr, "fg: %s\n", err)
			return true
		}
		if p, ok := k.Processes.Get(pid); ok {
			p.Wait(context.Background())
		}

	case "bg":
		pid, ok := parsePid(fields)
		if !ok {
			return true
		}
		k.Input.SendToBackground(pid)

	case "kill":
		pid, ok := parsePid(fields)
		if !ok {
			return true
		}
		if err := k.Kill(pid); err != nil {
			fmt.Fprintf(os.Stderr, "kill: %s\n", err)
		}

	default:
		return false
	}

	return true
}

func parsePid(fields []string) (int, bool) {
	if len(fields) < 2 {
		fmt.Fprintf(os.Stderr, "%s: need a pid\n", fields[0])
		return 0, false
	}

	pid, err := strconv.Atoi(fields[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: bad pid %q\n", fields[0], fields[1])
		return 0, false
	}

	return pid, true
}

// resolveCommand finds the program a bare command name refers to: paths are
// taken as-is, names look under /bin with and without the .c suffix.
func resolveCommand(d *syscalls.Dispatcher, host *kernel.Task, name string) string {
	if strings.Contains(name, "/") {
		return name
	}

	for _, candidate := range []string{
		"/bin/" + name + ".c",
		"/bin/" + name,
		name,
	} {
		if node, err := d.Kernel.FS.Lookup(host.Cwd(), candidate); err == nil && !node.IsDir() {
			return candidate
		}
	}

	return name
}

// seed copies a host directory tree into the virtual filesystem.
func seed(fs *vfs.FS, rootDir string) error {
	root := fs.Root()

	return filepath.WalkDir(rootDir, func(p string, de iofs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, rerr := filepath.Rel(rootDir, p)
		if rerr != nil {
			return rerr
		}
		if rel == "." {
			return nil
		}

		vpath := "/" + filepath.ToSlash(rel)

		if de.IsDir() {
			_, merr := fs.Mkdir(root, vpath)
			return merr
		}

		data, rerr := os.ReadFile(p)
		if rerr != nil {
			return rerr
		}

		node, cerr := fs.Create(root, vpath)
		if cerr != nil {
			return cerr
		}

		return fs.WriteFile(node, data)
	})
}
