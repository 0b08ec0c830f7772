package rom

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"github.com/nevisdale/vectic/internal/bus"
	"github.com/nevisdale/vectic/internal/memmap"
	"github.com/spf13/afero"
)

const (
	biosSmallSize = memmap.BIOSSize / 2

	// every cartridge starts with the copyright string the BIOS checks for
	headerMagic = "g GCE "

	// end of a header string
	stringEnd = 0x80
)

var (
	ErrNoHeader        = errors.New("no cartridge header")
	ErrTruncatedHeader = errors.New("truncated cartridge header")
)

// LoadBIOS reads a 4KB or 8KB system ROM image from fs.
func LoadBIOS(fs afero.Fs, path string) ([]uint8, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("couldn't read the BIOS: %w", err)
	}
	if len(data) != biosSmallSize && len(data) != memmap.BIOSSize {
		return nil, &bus.BIOSSizeError{Len: len(data)}
	}
	return data, nil
}

// LoadCartridge reads a cartridge image from fs. Images larger than the
// cartridge window are rejected, a missing header is not an error since
// homebrew test images often have none.
func LoadCartridge(fs afero.Fs, path string) ([]uint8, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("couldn't read the cartridge: %w", err)
	}
	if len(data) > memmap.CartridgeSize {
		return nil, &bus.CartridgeSizeError{Len: len(data)}
	}
	return data, nil
}

// TitleLine is one line of the title shown by the BIOS at power on.
type TitleLine struct {
	Height int8
	Width  uint8
	Y, X   int8
	Text   string
}

// Header is the block at $0000 of every cartridge:
//
//	"g GCE yyyy" $80       copyright and year
//	FDB music              start-up music
//	height width y x       title line, repeated
//	text $80
//	$00                    end of header, code follows
type Header struct {
	Year      int
	Music     uint16
	Title     []TitleLine
	CodeStart uint16
}

// ParseHeader decodes the cartridge header.
func ParseHeader(data []uint8) (Header, error) {
	var h Header
	if !bytes.HasPrefix(data, []byte(headerMagic)) {
		return h, ErrNoHeader
	}

	pos := len(headerMagic)
	end := bytes.IndexByte(data[pos:], stringEnd)
	if end < 0 {
		return h, ErrTruncatedHeader
	}
	if year, err := strconv.Atoi(string(data[pos : pos+end])); err == nil {
		h.Year = year
	}
	pos += end + 1

	if pos+2 > len(data) {
		return h, ErrTruncatedHeader
	}
	h.Music = uint16(data[pos])<<8 | uint16(data[pos+1])
	pos += 2

	for {
		if pos >= len(data) {
			return h, ErrTruncatedHeader
		}
		if data[pos] == 0 {
			pos++
			break
		}
		if pos+4 > len(data) {
			return h, ErrTruncatedHeader
		}
		line := TitleLine{
			Height: int8(data[pos]),
			Width:  data[pos+1],
			Y:      int8(data[pos+2]),
			X:      int8(data[pos+3]),
		}
		pos += 4
		end := bytes.IndexByte(data[pos:], stringEnd)
		if end < 0 {
			return h, ErrTruncatedHeader
		}
		line.Text = string(data[pos : pos+end])
		pos += end + 1
		h.Title = append(h.Title, line)
	}

	h.CodeStart = uint16(pos)
	return h, nil
}

func (h Header) String() string {
	var title []byte
	for i, line := range h.Title {
		if i > 0 {
			title = append(title, " / "...)
		}
		title = append(title, line.Text...)
	}
	return fmt.Sprintf("%q (%d) code at $%04X", title, h.Year, h.CodeStart)
}
