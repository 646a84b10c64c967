package lib

import "crypto/rand"
import "errors"

// ErrShortID: an odd-length or too-short buffer was passed to NewID.
var ErrShortID = errors.New("spanmalloc.lib.shortid")

// ID is a short random identifier.
type ID []byte

// NewID fills buf with random bytes read from crypto/rand.
func NewID(buf ID) (ID, error) {
	if ln := len(buf); ln < 4 || (ln%2) != 0 {
		return nil, ErrShortID
	} else if _, err := rand.Read([]byte(buf)); err != nil {
		return nil, err
	}
	return buf, nil
}

// AllocID is NewID over a freshly allocated buffer of size bytes.
func AllocID(size int) (ID, error) {
	if (size % 2) != 0 {
		return nil, ErrShortID
	}
	return NewID(make([]byte, size))
}

var hexlookup = [16]byte{
	'0', '1', '2', '3', '4', '5', '6', '7', '8', '9',
	'a', 'b', 'c', 'd', 'e', 'f',
}

// String renders the id as a plain hex string, no hyphenation.
func (id ID) String() string {
	out := make([]byte, len(id)*2)
	for i, b := range id {
		out[i*2] = hexlookup[b>>4]
		out[i*2+1] = hexlookup[b&0xF]
	}
	return string(out)
}
