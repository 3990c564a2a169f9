package usbid

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/ardnew/usbctrl/pkg"
)

// DefaultPaths lists the usual locations of the usb.ids database.
var DefaultPaths = []string{
	"/usr/share/hwdata/usb.ids",
	"/var/lib/usbutils/usb.ids",
	"/usr/share/misc/usb.ids",
}

// Database maps vendor and product IDs to names.
// It is safe for concurrent use.
type Database struct {
	vendors  map[uint16]string // VID -> vendor name
	products map[uint32]string // (VID<<16)|PID -> product name
	source   string
	mu       sync.RWMutex
}

// New returns an empty database.
func New() *Database {
	return &Database{
		vendors:  make(map[uint16]string),
		products: make(map[uint32]string),
	}
}

// Open parses the first readable file among paths, or DefaultPaths if none
// are given. The returned error wraps os.ErrNotExist when no file exists.
func Open(paths ...string) (*Database, error) {
	if len(paths) == 0 {
		paths = DefaultPaths
	}
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		db := New()
		err = db.Parse(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		db.source = path
		pkg.LogDebug(pkg.ComponentProfile, "usb id database loaded",
			"path", path,
			"vendors", len(db.vendors),
			"products", len(db.products))
		return db, nil
	}
	return nil, fmt.Errorf("usb.ids not found in %v: %w", paths, os.ErrNotExist)
}

// Parse adds the vendor and product entries read from r. Device classes and
// the other trailing sections of the file are skipped.
func (db *Database) Parse(r io.Reader) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	var vendor uint16
	inVendor := false

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || line[0] == '#' {
			continue
		}

		switch {
		case strings.HasPrefix(line, "\t\t"):
			// Interface entries of a product.
		case line[0] == '\t':
			if !inVendor {
				continue
			}
			if id, name, ok := parseEntry(line[1:]); ok {
				db.products[uint32(vendor)<<16|uint32(id)] = name
			}
		default:
			id, name, ok := parseEntry(line)
			inVendor = ok
			if ok {
				vendor = id
				db.vendors[id] = name
			}
		}
	}
	return scanner.Err()
}

// parseEntry splits "xxxx  Name" into its hex ID and name.
func parseEntry(line string) (uint16, string, bool) {
	hexID, name, found := strings.Cut(line, " ")
	if !found || len(hexID) != 4 {
		return 0, "", false
	}
	id, err := strconv.ParseUint(hexID, 16, 16)
	if err != nil {
		return 0, "", false
	}
	return uint16(id), strings.TrimSpace(name), true
}

// Lookup returns the vendor and product names, or empty strings for IDs not
// in the database.
func (db *Database) Lookup(vid, pid uint16) (vendor, product string) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.vendors[vid], db.products[uint32(vid)<<16|uint32(pid)]
}

// Source returns the path the database was loaded from, if any.
func (db *Database) Source() string {
	return db.source
}

// Len returns the number of vendors and products.
func (db *Database) Len() (vendors, products int) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.vendors), len(db.products)
}
