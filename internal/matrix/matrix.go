// Package matrix pivots a flat list of link records into the bank × product
// grid the links screen renders. Build is a pure function: no I/O, no
// mutation of its input, safe to re-run on every refresh.
package matrix

import (
	"github.com/finlink/crm-console-go/internal/model"
)

type cellKey struct {
	bank    int64
	product int64
}

// Matrix is the derived grid. Rows and columns are ordered by first
// appearance in the source list; each cell holds at most one record.
type Matrix struct {
	rows    []model.Bank
	columns []model.Product
	cells   map[cellKey]model.LinkRecord
}

// Build derives the matrix in one pass over links.
//
// The first occurrence of a bank or product id fixes its position and its
// display name. When two records share a (bank, product) pair the later one
// replaces the earlier: the backend is assumed to keep the pair unique, but
// if it does not, last-write-wins is the policy.
func Build(links []model.LinkRecord) Matrix {
	m := Matrix{
		cells: make(map[cellKey]model.LinkRecord, len(links)),
	}

	seenBanks := make(map[int64]bool)
	seenProducts := make(map[int64]bool)

	for _, link := range links {
		if !seenBanks[link.Bank] {
			seenBanks[link.Bank] = true
			m.rows = append(m.rows, model.Bank{ID: link.Bank, Name: link.BankName})
		}
		if !seenProducts[link.Product] {
			seenProducts[link.Product] = true
			m.columns = append(m.columns, model.Product{ID: link.Product, Name: link.ProductName})
		}
		m.cells[cellKey{bank: link.Bank, product: link.Product}] = link
	}

	return m
}

// Rows returns the distinct banks in first-appearance order.
func (m Matrix) Rows() []model.Bank {
	rows := make([]model.Bank, len(m.rows))
	copy(rows, m.rows)
	return rows
}

// Columns returns the distinct products in first-appearance order.
func (m Matrix) Columns() []model.Product {
	columns := make([]model.Product, len(m.columns))
	copy(columns, m.columns)
	return columns
}

// Cell returns the record for a (bank, product) pair. Pairs never present in
// the input are an ordinary absence, not an error.
func (m Matrix) Cell(bankID, productID int64) (model.LinkRecord, bool) {
	link, ok := m.cells[cellKey{bank: bankID, product: productID}]
	return link, ok
}

// Size reports rows × columns, the number of renderable cells including
// empty ones.
func (m Matrix) Size() (banks, products int) {
	return len(m.rows), len(m.columns)
}
