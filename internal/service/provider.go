package service

import "sync"

// Provider constructs a SimilarityService on first use and hands the same
// instance to every later caller.
type Provider struct {
	build func() (*SimilarityService, error)

	once sync.Once
	svc  *SimilarityService
	err  error
}

func NewProvider(build func() (*SimilarityService, error)) *Provider {
	return &Provider{build: build}
}

// Get returns the shared service. A construction error is returned to every
// caller; it comes from configuration and does not change by retrying.
func (p *Provider) Get() (*SimilarityService, error) {
	p.once.Do(func() {
		p.svc, p.err = p.build()
	})
	return p.svc, p.err
}
