package taxonomy

import (
	"regexp"

	"github.com/specialty-map-server/internal/domain"
)

// BucketRef identifies one (domain, parentBucket) pair.
type BucketRef struct {
	Domain domain.Domain
	Bucket string
}

// CompiledBucketHint is a BucketHint with its regex hints compiled.
type CompiledBucketHint struct {
	Name           string
	Domain         domain.Domain
	Synonyms       []string
	Regexes        []*regexp.Regexp
	NegativeTokens []string
}

type bucketKey struct {
	dom    domain.Domain
	bucket string
}

// Index holds the immutable lookup structures built once from the taxonomy
// and synonym documents. It is safe for concurrent readers; nothing mutates
// it after construction. Hot-reload rebuilds a fresh Index and swaps the
// reference, it never patches a live one.
type Index struct {
	version         string
	all             []*domain.CanonicalSpecialty
	byID            map[string]*domain.CanonicalSpecialty
	byBucket        map[bucketKey][]*domain.CanonicalSpecialty
	synonymToBucket map[string]BucketRef
	hints           []CompiledBucketHint
	pediatricHints  map[string]struct{}
}

// NewIndex builds the taxonomy index. It fails with a ConfigError on
// duplicate canonical ids, synonyms mapping to more than one
// (domain, parentBucket) pair, or unparseable bucket regex hints —
// ambiguity must be fixed in configuration, not papered over at runtime.
func NewIndex(tax *TaxonomyDocument, syn *SynonymDocument) (*Index, error) {
	idx := &Index{
		version:         tax.Version,
		byID:            make(map[string]*domain.CanonicalSpecialty, len(tax.Specialties)),
		byBucket:        make(map[bucketKey][]*domain.CanonicalSpecialty),
		synonymToBucket: make(map[string]BucketRef),
		pediatricHints:  make(map[string]struct{}, len(syn.PediatricHints)),
	}

	bucketDomains := make(map[string]map[domain.Domain]struct{})
	for _, b := range syn.Buckets {
		if bucketDomains[b.Name] == nil {
			bucketDomains[b.Name] = make(map[domain.Domain]struct{})
		}
		bucketDomains[b.Name][b.Domain] = struct{}{}
	}

	for i := range tax.Specialties {
		sp := &tax.Specialties[i]
		if _, dup := idx.byID[sp.ID]; dup {
			return nil, domain.NewConfigError(domain.ErrDuplicateID, "taxonomy",
				"canonical id %q defined more than once", sp.ID)
		}
		// A leaf may only sit under a bucket declared for its own domain;
		// a bucket declared solely under the other domain is a wiring
		// error, not a lookup miss.
		if doms, declared := bucketDomains[sp.ParentBucket]; declared {
			if _, ok := doms[sp.Domain]; !ok {
				return nil, domain.NewConfigError(domain.ErrCrossDomainBucket, "taxonomy",
					"specialty %q: parent bucket %q is not declared for domain %s",
					sp.ID, sp.ParentBucket, sp.Domain)
			}
		}
		idx.byID[sp.ID] = sp
		idx.all = append(idx.all, sp)

		key := bucketKey{dom: sp.Domain, bucket: sp.ParentBucket}
		// Append order is taxonomy file order: the deterministic tie-break
		// for equal candidate scores.
		idx.byBucket[key] = append(idx.byBucket[key], sp)

		ref := BucketRef{Domain: sp.Domain, Bucket: sp.ParentBucket}
		for _, s := range sp.Synonyms {
			if err := idx.addSynonym(s, ref); err != nil {
				return nil, err
			}
		}
	}

	for _, b := range syn.Buckets {
		hint := CompiledBucketHint{
			Name:           b.Name,
			Domain:         b.Domain,
			Synonyms:       b.Synonyms,
			NegativeTokens: b.NegativeTokens,
		}
		for _, expr := range b.RegexHints {
			re, err := regexp.Compile(expr)
			if err != nil {
				return nil, domain.NewConfigError(domain.ErrBadPattern, "synonyms",
					"bucket %q regex hint %q: %v", b.Name, expr, err)
			}
			hint.Regexes = append(hint.Regexes, re)
		}
		idx.hints = append(idx.hints, hint)

		ref := BucketRef{Domain: b.Domain, Bucket: b.Name}
		for _, s := range b.Synonyms {
			if err := idx.addSynonym(s, ref); err != nil {
				return nil, err
			}
		}
	}

	for _, h := range syn.PediatricHints {
		idx.pediatricHints[h] = struct{}{}
	}

	return idx, nil
}

func (idx *Index) addSynonym(synonym string, ref BucketRef) error {
	if existing, ok := idx.synonymToBucket[synonym]; ok {
		if existing != ref {
			return domain.NewConfigError(domain.ErrAmbiguousSynonym, "taxonomy",
				"synonym %q maps to both %s/%s and %s/%s",
				synonym, existing.Domain, existing.Bucket, ref.Domain, ref.Bucket)
		}
		return nil
	}
	idx.synonymToBucket[synonym] = ref
	return nil
}

// Version returns the taxonomy document version.
func (idx *Index) Version() string {
	return idx.version
}

// All returns every canonical specialty in taxonomy file order.
func (idx *Index) All() []*domain.CanonicalSpecialty {
	return idx.all
}

// ByID returns the canonical specialty for id, or nil.
func (idx *Index) ByID(id string) *domain.CanonicalSpecialty {
	return idx.byID[id]
}

// ByParentBucket returns all leaves of (dom, bucket) in taxonomy file order.
func (idx *Index) ByParentBucket(dom domain.Domain, bucket string) []*domain.CanonicalSpecialty {
	return idx.byBucket[bucketKey{dom: dom, bucket: bucket}]
}

// SynonymToBucket resolves a synonym to its unique (domain, bucket) pair.
func (idx *Index) SynonymToBucket(synonym string) (BucketRef, bool) {
	ref, ok := idx.synonymToBucket[synonym]
	return ref, ok
}

// Synonyms returns the full synonym map. Callers must treat it as read-only.
func (idx *Index) Synonyms() map[string]BucketRef {
	return idx.synonymToBucket
}

// BucketHints returns the compiled bucket hints scoped to dom, in document
// order.
func (idx *Index) BucketHints(dom domain.Domain) []CompiledBucketHint {
	out := make([]CompiledBucketHint, 0, len(idx.hints))
	for _, h := range idx.hints {
		if h.Domain == dom {
			out = append(out, h)
		}
	}
	return out
}

// IsPediatricHint reports whether token is a configured pediatric hint.
func (idx *Index) IsPediatricHint(token string) bool {
	_, ok := idx.pediatricHints[token]
	return ok
}
