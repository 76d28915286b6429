package bench

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Table is a numeric dataset with one row per instance.
type Table struct {
	Names []string
	Data  *mat.Dense
	// Class is the column holding the class attribute, negative for none.
	Class int
}

func (t *Table) NumAttributes() int {
	_, c := t.Data.Dims()
	return c
}

func (t *Table) HasClass() bool  { return t.Class >= 0 }
func (t *Table) ClassIndex() int { return t.Class }

// ReadCSV reads a numeric table.  The first row is taken as column names
// when any of its fields is not a number.  A negative classCol selects the
// last column as the class.
func ReadCSV(r io.Reader, classCol int) (*Table, error) {
	recs, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, errors.New("empty table")
	}

	ncol := len(recs[0])
	var names []string
	if !numeric(recs[0]) {
		names = make([]string, ncol)
		for i, s := range recs[0] {
			names[i] = strings.TrimSpace(s)
		}
		recs = recs[1:]
	} else {
		names = make([]string, ncol)
		for i := range names {
			names[i] = fmt.Sprintf("a%v", i+1)
		}
	}
	if len(recs) == 0 {
		return nil, errors.New("table has no rows")
	}

	data := make([]float64, 0, len(recs)*ncol)
	for i, rec := range recs {
		for j, s := range rec {
			v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return nil, fmt.Errorf("row %v column %v: %w", i+1, j+1, err)
			}
			data = append(data, v)
		}
	}

	if classCol < 0 {
		classCol = ncol - 1
	} else if classCol >= ncol {
		return nil, fmt.Errorf("class column %v out of range [1,%v]", classCol+1, ncol)
	}
	return &Table{Names: names, Data: mat.NewDense(len(recs), ncol, data), Class: classCol}, nil
}

func numeric(rec []string) bool {
	for _, s := range rec {
		if _, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err != nil {
			return false
		}
	}
	return true
}
