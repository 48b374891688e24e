package tenant

// PathKind identifies one of the closed set of retention strategies an
// account can offer a cancelling customer. Discounts are deliberately not
// one of them.
type PathKind string

const (
	PathPause       PathKind = "pause"
	PathDowngrade   PathKind = "downgrade"
	PathExtension   PathKind = "extension"
	PathSupportCall PathKind = "support_call"
	PathOffboard    PathKind = "offboard_gracefully"
)

// PathKinds lists every retention path in presentation order.
var PathKinds = []PathKind{PathPause, PathDowngrade, PathExtension, PathSupportCall, PathOffboard}

// RetentionPath is one configurable strategy: whether the account offers it,
// and optional account-written copy describing the offer.
type RetentionPath struct {
	Enabled bool   `json:"enabled"`
	Offer   string `json:"offer,omitempty"`
}

// Config is the per-account interview configuration.
type Config struct {
	ProductDescription string                     `json:"product_description"`
	Competitors        []string                   `json:"competitors"`
	Plans              []string                   `json:"plans"`
	Paths              map[PathKind]RetentionPath `json:"paths"`
	MinExchanges       int                        `json:"min_exchanges"`
	MaxExchanges       int                        `json:"max_exchanges"`
	BrandVoice         string                     `json:"brand_voice,omitempty"`
}

const (
	minExchangeBound = 1
	maxExchangeBound = 20
)

// Default returns the conservative configuration used when an account has no
// stored config: a generic product description and only the graceful
// offboarding path.
func Default() Config {
	return Config{
		ProductDescription: "a software product",
		Paths: map[PathKind]RetentionPath{
			PathOffboard: {Enabled: true},
		},
		MinExchanges: 3,
		MaxExchanges: 7,
	}
}

// Normalize clamps exchange bounds into [1,20] and forces max >= min.
// Stored rows are never rewritten; violations are corrected at read time.
func Normalize(c Config) Config {
	c.MinExchanges = clamp(c.MinExchanges)
	c.MaxExchanges = clamp(c.MaxExchanges)
	if c.MinExchanges > c.MaxExchanges {
		c.MaxExchanges = c.MinExchanges
	}
	if c.Paths == nil {
		c.Paths = map[PathKind]RetentionPath{}
	}
	// Graceful offboarding is on unless the account explicitly disabled it.
	if _, ok := c.Paths[PathOffboard]; !ok {
		c.Paths[PathOffboard] = RetentionPath{Enabled: true}
	}
	return c
}

// EnabledPaths returns the enabled retention paths in presentation order.
func (c Config) EnabledPaths() []PathKind {
	var out []PathKind
	for _, k := range PathKinds {
		if c.Paths[k].Enabled {
			out = append(out, k)
		}
	}
	return out
}

func clamp(n int) int {
	if n < minExchangeBound {
		return minExchangeBound
	}
	if n > maxExchangeBound {
		return maxExchangeBound
	}
	return n
}
