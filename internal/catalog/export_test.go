package catalog

// DirReader exposes the directory reader for tests.
type DirReader = dirReader

// WithOpenDir returns a copy of c reading directories through open.
func (c *Catalog) WithOpenDir(open func(dir string) (DirReader, error)) *Catalog {
	cp := *c
	cp.openDir = open
	return &cp
}
