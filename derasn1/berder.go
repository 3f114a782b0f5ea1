package derasn1

import (
	"golang.org/x/crypto/cryptobyte"
	casn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// maxIndefiniteDepth bounds the number of simultaneously open
// indefinite-length constructed items BerToDer will track: a
// compile-time cap of 20 simultaneous indefinite items.
const maxIndefiniteDepth = 20

// BerToDer rewrites a BER encoding (which may use the indefinite
// length form, 0x80, terminated by an end-of-contents marker 00 00)
// into its canonical DER form. DER input is a fixed point: running it
// through BerToDer returns it unchanged. The definite-length re-emission is built with
// cryptobyte.Builder, which defers length-prefix writes until the
// child content is known — exactly the generic recursive tree rewrite
// this conversion needs, as opposed to the bespoke descriptor-driven
// engine in template.go.
func BerToDer(ber []byte) ([]byte, error) {
	c := NewCursor(ber)
	b := cryptobyte.NewBuilder(nil)
	if err := rewriteElement(c, b, 0); err != nil {
		return nil, err
	}
	if c.Pos() != c.Len() {
		return nil, ParseError(c.Pos(), "trailing bytes after top-level element")
	}
	return b.Bytes()
}

func rewriteElement(c *Cursor, b *cryptobyte.Builder, depth int) error {
	if depth > maxIndefiniteDepth {
		return ParseError(c.Pos(), "indefinite-length nesting exceeds maximum depth %d", maxIndefiniteDepth)
	}
	start := c.Pos()
	tag, err := c.ReadTag()
	if err != nil {
		return err
	}
	length, err := c.ReadLength()
	if err != nil {
		return err
	}
	constructed := tag&classConstructed != 0

	if length >= 0 {
		// Definite length: copy the element through unchanged (this
		// is the "DER is a fixed point" path), but still descend into
		// constructed children so any nested indefinite-length BER is
		// normalized too.
		content, err := c.ReadN(length)
		if err != nil {
			return err
		}
		if !constructed {
			b.AddASN1(casn1.Tag(tag), func(child *cryptobyte.Builder) {
				child.AddBytes(content)
			})
			return nil
		}
		inner := NewCursor(content)
		b.AddASN1(casn1.Tag(tag), func(child *cryptobyte.Builder) {
			for inner.Remaining() > 0 {
				if err := rewriteElement(inner, child, depth); err != nil {
					child.SetError(err)
					return
				}
			}
		})
		return nil
	}

	// Indefinite length: only legal on constructed items.
	if !constructed {
		return ParseError(start, "indefinite length on a primitive element")
	}
	var innerErr error
	b.AddASN1(casn1.Tag(tag), func(child *cryptobyte.Builder) {
		for {
			if c.Remaining() < 2 {
				innerErr = BufferError(c.Pos())
				return
			}
			b0, _ := c.PeekByte()
			if b0 == 0x00 {
				mark := c.Pos()
				eoc, _ := c.ReadN(2)
				if eoc[0] == 0x00 && eoc[1] == 0x00 {
					return
				}
				c.pos = mark
			}
			if err := rewriteElement(c, child, depth+1); err != nil {
				innerErr = err
				return
			}
		}
	})
	return innerErr
}
