package main

import (
	"fmt"
	"io"
	"os"
	"path"

	"github.com/ceyert/kuzne/kernel"
	"github.com/ceyert/kuzne/kernel/fs"
	"github.com/ceyert/kuzne/kernel/hal"
	"github.com/ceyert/kuzne/kernel/kfmt"
	"github.com/ceyert/kuzne/kernel/kmain"
	"github.com/ceyert/kuzne/kernel/mem"
	"github.com/spf13/cobra"
)

type runOptions struct {
	root       string
	heapMiB    int
	init       string
	ticks      int
	keys       string
	watch      bool
	screenshot string
	dump       bool
}

func init() {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Boot the kernel and run the init program",
		Long: `The run command boots the kernel, starts the init program and then
delivers the requested keystrokes and timer ticks.

Example:
  kuzne run --root ./bin --init shell.elf --ticks 10
  kuzne run --root ./bin --keys "ls\n" --screenshot screen.png`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKernel(cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.root, "root", ".", "Host directory mounted as drive 0")
	cmd.Flags().IntVar(&opts.heapMiB, "heap", 100, "Kernel heap size in MiB")
	cmd.Flags().StringVar(&opts.init, "init", "shell.elf", "Init program, relative to drive 0")
	cmd.Flags().IntVar(&opts.ticks, "ticks", 0, "Number of timer ticks to deliver")
	cmd.Flags().StringVar(&opts.keys, "keys", "", "Keystrokes delivered before the first tick")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "Reload programs when they change on the host")
	cmd.Flags().StringVar(&opts.screenshot, "screenshot", "", "Write a PNG of the console to this file on exit")
	cmd.Flags().BoolVar(&opts.dump, "dump", false, "Print the console contents on exit")

	rootCmd.AddCommand(cmd)
}

func runKernel(out io.Writer, opts runOptions) error {
	if opts.heapMiB <= 0 {
		return fmt.Errorf("heap size must be positive, got %d", opts.heapMiB)
	}

	hal.InitTerminal()
	kfmt.SetOutputSink(io.MultiWriter(hal.ActiveTerminal, &kfmt.PrefixWriter{Sink: out, Prefix: []byte("[kuzne] ")}))
	defer kfmt.SetOutputSink(nil)

	host := fs.NewHostFS(opts.root)
	defer func() { _ = host.Close() }()
	if opts.watch {
		if err := host.Watch(); err != nil {
			return fmt.Errorf("watching %s: %w", opts.root, err)
		}
	}

	var drives fs.Drives
	if err := drives.Mount(0, host); err != nil {
		return err
	}

	cfg := kernel.DefaultConfig()
	cfg.HeapSize = uintptr(opts.heapMiB) * uintptr(mem.Mb)
	cfg.InitProgram = cfg.BootDrive + path.Clean(opts.init)

	k := kmain.New(cfg, &drives, hal.ActiveTerminal)
	defer k.Shutdown()

	if err := k.Boot(); err != nil {
		return fmt.Errorf("boot: %w", err)
	}

	for _, c := range []byte(unescape(opts.keys)) {
		if err := k.PressKey(c); err != nil {
			return fmt.Errorf("key %q: %w", c, err)
		}
	}

	for tick := 0; tick < opts.ticks; tick++ {
		if err := k.Tick(); err != nil {
			return fmt.Errorf("tick %d: %w", tick, err)
		}
	}

	if opts.dump {
		fmt.Fprint(out, hal.ActiveConsole().Text())
	}

	if opts.screenshot != "" {
		return writeScreenshot(opts.screenshot)
	}

	return nil
}

func writeScreenshot(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}

	if err = hal.ActiveConsole().Screenshot(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("screenshot: %w", err)
	}

	return f.Close()
}

// unescape expands the \n, \b and \t sequences accepted by --keys.
func unescape(keys string) string {
	var out []byte
	for i := 0; i < len(keys); i++ {
		if keys[i] != '\\' || i+1 == len(keys) {
			out = append(out, keys[i])
			continue
		}

		i++
		switch keys[i] {
		case 'n':
			out = append(out, '\n')
		case 'b':
			out = append(out, '\b')
		case 't':
			out = append(out, '\t')
		default:
			out = append(out, '\\', keys[i])
		}
	}
	return string(out)
}
