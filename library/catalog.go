package library

import (
	"strings"
	"sync"
)

// BookCatalog owns the ordered collection of books. Insertion order is display order.
type BookCatalog struct {
	mu    sync.RWMutex
	books []Book
	index map[int64]int // id -> position in books
}

// NewBookCatalog returns an empty catalog.
func NewBookCatalog() *BookCatalog {
	return &BookCatalog{index: make(map[int64]int)}
}

// Create trims the text fields, parses the year and appends a new book.
// The id is one more than the largest id currently stored, or 1 when empty.
func (c *BookCatalog) Create(title, author, genre, year string) Book {
	c.mu.Lock()
	defer c.mu.Unlock()

	b := Book{
		ID:              c.nextID(),
		Title:           strings.TrimSpace(title),
		Author:          strings.TrimSpace(author),
		Genre:           strings.TrimSpace(genre),
		PublicationYear: ParseYear(year),
	}
	c.index[b.ID] = len(c.books)
	c.books = append(c.books, b)
	return b
}

func (c *BookCatalog) nextID() int64 {
	var maxID int64
	for _, b := range c.books {
		if b.ID > maxID {
			maxID = b.ID
		}
	}
	return maxID + 1
}

// List returns all books in insertion order. A non-blank filter keeps only
// books whose title or author contains it, ignoring case.
func (c *BookCatalog) List(filter string) []Book {
	c.mu.RLock()
	defer c.mu.RUnlock()

	q := strings.ToLower(strings.TrimSpace(filter))
	res := make([]Book, 0, len(c.books))
	for _, b := range c.books {
		if q == "" ||
			strings.Contains(strings.ToLower(b.Title), q) ||
			strings.Contains(strings.ToLower(b.Author), q) {
			res = append(res, b)
		}
	}
	return res
}

// FindByID looks up a book by id.
func (c *BookCatalog) FindByID(id int64) (Book, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	pos, ok := c.index[id]
	if !ok {
		return Book{}, false
	}
	return c.books[pos], true
}

// Update replaces every field except the id. Unknown ids are ignored and
// reported as false.
func (c *BookCatalog) Update(id int64, title, author, genre, year string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	pos, ok := c.index[id]
	if !ok {
		return false
	}
	c.books[pos] = Book{
		ID:              id,
		Title:           strings.TrimSpace(title),
		Author:          strings.TrimSpace(author),
		Genre:           strings.TrimSpace(genre),
		PublicationYear: ParseYear(year),
	}
	return true
}

// Delete removes a book while keeping the order of the rest. Unknown ids are
// ignored and reported as false.
func (c *BookCatalog) Delete(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	pos, ok := c.index[id]
	if !ok {
		return false
	}
	c.books = append(c.books[:pos], c.books[pos+1:]...)
	delete(c.index, id)
	for i := pos; i < len(c.books); i++ {
		c.index[c.books[i].ID] = i
	}
	return true
}

// Len returns the number of books in the catalog.
func (c *BookCatalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.books)
}
