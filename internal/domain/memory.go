package domain

import (
	"strings"
	"time"
)

type Namespace string

const (
	NamespaceSarcasm  Namespace = "sarcasm_vector"
	NamespaceEcho     Namespace = "echo_map"
	NamespaceSlop     Namespace = "slop_fingerprint"
	NamespaceBanTerms Namespace = "ban_term_stats"
	NamespaceLatency  Namespace = "latency_flags"
)

// Namespaces lists every namespace in a stable order.
var Namespaces = []Namespace{
	NamespaceSarcasm,
	NamespaceEcho,
	NamespaceSlop,
	NamespaceBanTerms,
	NamespaceLatency,
}

func ValidNamespace(ns string) bool {
	for _, n := range Namespaces {
		if string(n) == ns {
			return true
		}
	}
	return false
}

// MemoryKey builds the deterministic "namespace:entity" key.
func MemoryKey(ns Namespace, entity string) string {
	return string(ns) + ":" + entity
}

// SplitMemoryKey is the inverse of MemoryKey.
func SplitMemoryKey(key string) (Namespace, string, bool) {
	ns, entity, ok := strings.Cut(key, ":")
	if !ok {
		return "", "", false
	}
	return Namespace(ns), entity, true
}

type MemoryRecord struct {
	Namespace   Namespace `json:"namespace"`
	EntityKey   string    `json:"entity_key"`
	Fields      Record    `json:"fields"`
	LastUpdated time.Time `json:"last_updated"`
}

func (m MemoryRecord) Key() string {
	return MemoryKey(m.Namespace, m.EntityKey)
}

// Exists reports whether the record has ever been written.
func (m MemoryRecord) Exists() bool {
	return !m.LastUpdated.IsZero()
}

// Priors is the read-only snapshot of memory records an agent sees, keyed by namespace.
type Priors map[Namespace]MemoryRecord

// Fields returns the fields for a namespace, or an empty record.
func (p Priors) Fields(ns Namespace) Record {
	if rec, ok := p[ns]; ok && rec.Fields != nil {
		return rec.Fields
	}
	return Record{}
}
