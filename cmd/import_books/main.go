// Command import_books loads a seed file into an empty catalog and prints the
// books with the ids `catalog serve --seed` would assign.
package main

import (
	"fmt"
	"os"
	"strings"

	"library-catalog/library"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: import_books <seed.yaml>")
		os.Exit(2)
	}

	books, err := library.LoadSeed(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading seed file: %v\n", err)
		os.Exit(1)
	}

	catalog := library.NewBookCatalog()
	invalidYears := 0
	for _, sb := range books {
		b := catalog.Create(sb.Title, sb.Author, sb.Genre, sb.Year)
		if !b.PublicationYear.Valid {
			fmt.Printf("Warning: %q has no usable year (%q)\n", b.Title, sb.Year)
			invalidYears++
		}
	}

	fmt.Printf("%-3s %-40s %-25s %-15s %s\n", "ID", "Title", "Author", "Genre", "Year")
	fmt.Println(strings.Repeat("-", 90))
	for _, b := range catalog.List("") {
		fmt.Printf("%-3d %-40s %-25s %-15s %s\n",
			b.ID,
			truncateString(b.Title, 40),
			truncateString(b.Author, 25),
			truncateString(b.Genre, 15),
			b.PublicationYear)
	}

	fmt.Printf("\nBooks: %d\n", catalog.Len())
	fmt.Printf("Invalid years: %d\n", invalidYears)
}

func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
