// SPDX-License-Identifier: MPL-2.0

package archive

import (
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
)

type zipEncoder struct {
	zw     *zip.Writer
	method uint16
}

func newZipEncoder(out io.Writer, level int) *zipEncoder {
	zw := zip.NewWriter(out)
	method := zip.Deflate
	if level == MinLevel {
		method = zip.Store
	} else {
		zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
			return flate.NewWriter(w, level)
		})
	}
	return &zipEncoder{zw: zw, method: method}
}

func (e *zipEncoder) writeEntry(hdr entryHeader, r io.Reader) error {
	header := &zip.FileHeader{
		Name:     hdr.name,
		Method:   e.method,
		Modified: hdr.modTime,
	}
	header.SetMode(hdr.mode)

	entry, err := e.zw.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(entry, r)
	return err
}

func (e *zipEncoder) close() error {
	return e.zw.Close()
}
