package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ghalamif/streamwindow/internal/adapters/httpapi"
)

const consolePrompt = "Enter command (00: LED OFF, 01: LED ON, q: quit): "

// runConsole reads one command per line until q, EOF or ctx is done. Any
// single hex byte is forwarded; 00 and 01 switch the device LED.
func runConsole(ctx context.Context, in io.Reader, out io.Writer, send func(byte) error) error {
	lines := make(chan string)
	errCh := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		errCh <- scanner.Err()
	}()

	for {
		fmt.Fprint(out, consolePrompt)
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-errCh:
					return err
				default:
					return nil
				}
			}
			cmd := strings.TrimSpace(line)
			if strings.EqualFold(cmd, "q") {
				return nil
			}
			b, err := httpapi.ParseControlByte(cmd)
			if err != nil {
				fmt.Fprintln(out, "Invalid command. Please enter 00, 01, or q.")
				continue
			}
			if err := send(b); err != nil {
				fmt.Fprintf(out, "Send failed: %v\n", err)
				continue
			}
			fmt.Fprintf(out, "Sent command: %02x\n", b)
		}
	}
}
