package providers

import "io"

// closeInner closes p when it implements io.Closer.
func closeInner(p any) error {
	if c, ok := p.(io.Closer); ok && c != nil {
		return c.Close()
	}
	return nil
}

// Close releases provider resources when the provider supports it.
func Close(p DataProvider) error {
	return closeInner(p)
}
