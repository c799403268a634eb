// Copyright 2025 The ndb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package dict

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"iter"
	"strconv"
	"strings"

	"github.com/bpowers/ndb/tabular"
)

// Protocol is the transport protocol a services table covers.
type Protocol string

const (
	TCP Protocol = "tcp"
	UDP Protocol = "udp"
)

// Kind returns the database kind for the protocol, e.g. "tcp-services".
func (p Protocol) Kind() string {
	return string(p) + "-services"
}

// Kind names of the two services tables.
const (
	KindTCPServices = "tcp-services"
	KindUDPServices = "udp-services"
)

// Service describes the service conventionally found on a port.
type Service struct {
	Port        uint16
	Name        string
	Description string
	WellKnown   bool
	Common      bool
}

const (
	flagWellKnown = 1 << iota
	flagCommon
)

// Services maps port numbers to services for one protocol.
type Services struct {
	Table[uint16, Service]
}

func newServicesCodec(p Protocol) *codec[uint16, Service] {
	return &codec[uint16, Service]{
		kind:     p.Kind(),
		header:   []string{"port", "name", "description", "wellknown", "common"},
		required: []string{"port", "name", "wellknown", "common"},
		key:      func(s Service) uint16 { return s.Port },
		check:    checkService,
		parseKey: func(s string) (uint16, error) {
			n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 16)
			return uint16(n), err
		},
		fromRow: func(row tabular.Row) (Service, error) {
			port, err := row.Uint("port", 16)
			if err != nil {
				return Service{}, err
			}
			wellKnown, err := row.Flag("wellknown")
			if err != nil {
				return Service{}, err
			}
			common, err := row.Flag("common")
			if err != nil {
				return Service{}, err
			}
			name := row.Get("name")
			if strings.IndexByte(name, 0) >= 0 {
				return Service{}, row.Errorf("name", "%w", errNULName)
			}
			return Service{
				Port:        uint16(port),
				Name:        name,
				Description: row.Get("description"),
				WellKnown:   wellKnown,
				Common:      common,
			}, nil
		},
		record: func(s Service) []string {
			return []string{strconv.Itoa(int(s.Port)), s.Name, s.Description, flag(s.WellKnown), flag(s.Common)}
		},
		encode: func(key, value []byte, s Service) ([]byte, []byte) {
			var flags byte
			if s.WellKnown {
				flags |= flagWellKnown
			}
			if s.Common {
				flags |= flagCommon
			}
			value = append(value, flags)
			value = append(value, s.Name...)
			value = append(value, 0)
			value = append(value, s.Description...)
			return binary.BigEndian.AppendUint16(key, s.Port), value
		},
		decode: func(key, value []byte) (Service, error) {
			if len(key) != 2 {
				return Service{}, fmt.Errorf("port key is %d bytes, want 2", len(key))
			}
			if len(value) == 0 {
				return Service{}, errors.New("missing service flags")
			}
			flags := value[0]
			name, description, _ := bytes.Cut(value[1:], []byte{0})
			return Service{
				Port:        binary.BigEndian.Uint16(key),
				Name:        string(name),
				Description: string(description),
				WellKnown:   flags&flagWellKnown != 0,
				Common:      flags&flagCommon != 0,
			}, nil
		},
	}
}

var errNULName = errors.New("service name contains a NUL byte")

// checkService rejects names that would be cut short at the NUL
// separating name and description in the encoded value.
func checkService(s Service) error {
	if strings.IndexByte(s.Name, 0) >= 0 {
		return fmt.Errorf("port %d: %w", s.Port, errNULName)
	}
	return nil
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

var servicesCodecs = map[Protocol]*codec[uint16, Service]{
	TCP: newServicesCodec(TCP),
	UDP: newServicesCodec(UDP),
}

func servicesCodec(p Protocol) (*codec[uint16, Service], error) {
	c, ok := servicesCodecs[p]
	if !ok {
		return nil, fmt.Errorf("unknown protocol %q", p)
	}
	return c, nil
}

func wrapServices(t Table[uint16, Service]) *Services {
	return &Services{t}
}

// NewServices builds a services table for protocol p from entries.
func NewServices(p Protocol, entries []Service, opts ...Option) (*Services, error) {
	c, err := servicesCodec(p)
	if err != nil {
		return nil, err
	}
	t, err := c.fromEntries(entries, opts)
	if err != nil {
		return nil, err
	}
	return wrapServices(t), nil
}

// ReadServicesCSV builds a services table for protocol p from CSV with
// the columns port, name, description, wellknown and common.
func ReadServicesCSV(p Protocol, r io.Reader, opts ...Option) (*Services, error) {
	c, err := servicesCodec(p)
	if err != nil {
		return nil, err
	}
	t, err := c.readCSV(r, opts)
	if err != nil {
		return nil, err
	}
	return wrapServices(t), nil
}

// LoadServices decodes a services table for protocol p written by
// EncodeTo.
func LoadServices(p Protocol, data []byte, opts ...Option) (*Services, error) {
	c, err := servicesCodec(p)
	if err != nil {
		return nil, err
	}
	t, err := c.load(data, opts)
	if err != nil {
		return nil, err
	}
	return wrapServices(t), nil
}

// Name returns the name of the service on port.
func (db *Services) Name(port uint16) (string, bool) {
	s, ok := db.Get(port)
	return s.Name, ok
}

// WellKnown yields the well-known services in port order.
func (db *Services) WellKnown() iter.Seq[Service] {
	return db.Filter(func(s Service) bool { return s.WellKnown })
}

// Common yields the commonly used services in port order.
func (db *Services) Common() iter.Seq[Service] {
	return db.Filter(func(s Service) bool { return s.Common })
}

func init() {
	register(servicesCodecs[TCP], wrapServices)
	register(servicesCodecs[UDP], wrapServices)
}
