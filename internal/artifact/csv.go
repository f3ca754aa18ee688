package artifact

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/couchcryptid/neo-risk-etl/internal/domain"
)

// column maps one CSV column onto a field of T.
type column[T any] struct {
	name   string
	format func(*T) string
	parse  func(*T, string) error
}

func encode[T any](name string, cols []column[T], rows []T) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = c.name
	}
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("encode %s: %w", name, err)
	}

	rec := make([]string, len(cols))
	for i := range rows {
		for j, c := range cols {
			rec[j] = c.format(&rows[i])
		}
		if err := w.Write(rec); err != nil {
			return nil, fmt.Errorf("encode %s: %w", name, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("encode %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

func decode[T any](name string, cols []column[T], data []byte) ([]T, error) {
	r := csv.NewReader(bytes.NewReader(data))

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %s: missing header", domain.ErrArtifactInvalid, name)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrArtifactInvalid, name, err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		index[h] = i
	}
	positions := make([]int, len(cols))
	for i, c := range cols {
		pos, ok := index[c.name]
		if !ok {
			return nil, fmt.Errorf("%w: %s: missing column %q", domain.ErrArtifactInvalid, name, c.name)
		}
		positions[i] = pos
	}

	rows := make([]T, 0)
	for n := 1; ; n++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", domain.ErrArtifactInvalid, name, err)
		}

		var row T
		for i, c := range cols {
			if err := c.parse(&row, rec[positions[i]]); err != nil {
				return nil, fmt.Errorf("%w: %s row %d column %q: %w", domain.ErrArtifactInvalid, name, n, c.name, err)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func stringCol[T any](name string, field func(*T) *string) column[T] {
	return column[T]{
		name:   name,
		format: func(v *T) string { return *field(v) },
		parse: func(v *T, s string) error {
			*field(v) = s
			return nil
		},
	}
}

func floatCol[T any](name string, field func(*T) *float64) column[T] {
	return column[T]{
		name:   name,
		format: func(v *T) string { return strconv.FormatFloat(*field(v), 'g', -1, 64) },
		parse: func(v *T, s string) error {
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return err
			}
			*field(v) = f
			return nil
		},
	}
}

func intCol[T any](name string, field func(*T) *int) column[T] {
	return column[T]{
		name:   name,
		format: func(v *T) string { return strconv.Itoa(*field(v)) },
		parse: func(v *T, s string) error {
			n, err := strconv.Atoi(s)
			if err != nil {
				return err
			}
			*field(v) = n
			return nil
		},
	}
}

func boolCol[T any](name string, field func(*T) *bool) column[T] {
	return column[T]{
		name:   name,
		format: func(v *T) string { return strconv.FormatBool(*field(v)) },
		parse: func(v *T, s string) error {
			b, err := strconv.ParseBool(s)
			if err != nil {
				return err
			}
			*field(v) = b
			return nil
		},
	}
}

func dateCol[T any](name string, field func(*T) *time.Time) column[T] {
	return column[T]{
		name:   name,
		format: func(v *T) string { return domain.FormatDate(*field(v)) },
		parse: func(v *T, s string) error {
			d, err := domain.ParseDate(s)
			if err != nil {
				return err
			}
			*field(v) = d
			return nil
		},
	}
}

// lift adapts columns of an embedded struct U to its container T.
func lift[T, U any](cols []column[U], inner func(*T) *U) []column[T] {
	out := make([]column[T], len(cols))
	for i, c := range cols {
		out[i] = column[T]{
			name:   c.name,
			format: func(v *T) string { return c.format(inner(v)) },
			parse:  func(v *T, s string) error { return c.parse(inner(v), s) },
		}
	}
	return out
}
