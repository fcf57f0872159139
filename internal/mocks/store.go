package mocks

import (
	"context"
	"sync"

	"github.com/chainchat/syncd/internal/content"
)

// FakeStore is an in-memory content store.
type FakeStore struct {
	mu      sync.Mutex
	Objects map[string][]byte

	UploadErr   error
	UploadCalls int
}

func NewFakeStore() *FakeStore {
	return &FakeStore{Objects: make(map[string][]byte)}
}

func (f *FakeStore) Upload(ctx context.Context, data []byte, meta content.Meta) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.UploadCalls++
	if f.UploadErr != nil {
		return "", f.UploadErr
	}
	ref, err := content.ComputeRef(data)
	if err != nil {
		return "", err
	}
	f.Objects[ref] = data
	return ref, nil
}

func (f *FakeStore) ResolveURL(ref string) string {
	if ref == "" {
		return ""
	}
	return "https://gateway.test/ipfs/" + ref
}
