package content

import (
	"github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"
)

// ComputeRef computes the CID for uploaded bytes using SHA2-256, CIDv1 with
// raw codec. Computing locally lets the client verify the reference the
// pinning service returns instead of trusting it.
func ComputeRef(data []byte) (string, error) {
	hash, err := mh.Sum(data, mh.SHA2_256, -1)
	if err != nil {
		return "", err
	}
	return cid.NewCidV1(cid.Raw, hash).String(), nil
}

// ValidRef reports whether a string parses as a CID.
func ValidRef(ref string) bool {
	_, err := cid.Decode(ref)
	return err == nil
}
