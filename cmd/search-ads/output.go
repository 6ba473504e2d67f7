package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

func writeRaw(w io.Writer, data []byte, pretty bool) error {
	if pretty {
		var buf bytes.Buffer
		if err := json.Indent(&buf, data, "", "  "); err != nil {
			return err
		}
		data = buf.Bytes()
	}
	_, err := fmt.Fprintf(w, "%s\n", data)
	return err
}

func writeValue(w io.Writer, v any, pretty bool) error {
	var (
		data []byte
		err  error
	)
	if pretty {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

func writeLine(w io.Writer, data []byte) error {
	_, err := fmt.Fprintf(w, "%s\n", data)
	return err
}

// rowArray joins already-encoded JSON values into one array without
// re-parsing them.
func rowArray(rows []json.RawMessage) []byte {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, row := range rows {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(row)
	}
	buf.WriteByte(']')
	return buf.Bytes()
}
