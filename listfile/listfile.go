// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package listfile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/siemens/cidrscope/types"
)

// Read returns the non-blank lines of the file at path, with leading and
// trailing whitespace removed.
func Read(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Scan(f)
}

// Scan returns the non-blank lines read from r, with leading and trailing
// whitespace removed. Lines can be of any length.
func Scan(r io.Reader) ([]string, error) {
	lines := []string{}
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
		if err != nil {
			if err == io.EOF {
				return lines, nil
			}
			return lines, err
		}
	}
}

// WriteLines writes the specified lines to a newly created (or truncated) file
// at path, terminating each line with a newline.
func WriteLines(path string, lines []string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteRecords writes records to a newly created (or truncated) file at path,
// one "hostname: address" line per record.
func WriteRecords(path string, records []types.Record) error {
	lines := make([]string, 0, len(records))
	for _, rec := range records {
		lines = append(lines, rec.String())
	}
	return WriteLines(path, lines)
}
