package value

// String is the heap object backing the language's string values. Strings
// are immutable once created and are expected to be interned (see
// lang/table's intern table): two Strings with equal content should always
// be the same *String, which is what lets equality and hashing be pointer
// operations everywhere else in the VM.
type String struct {
	Header
	Chars string
	Hash  uint32
}

var _ Object = (*String)(nil)

// NewString allocates a String wrapping chars, precomputing its hash. It
// does not intern the string; callers that need interning go through the
// VM's string table.
func NewString(chars string) *String {
	return &String{Chars: chars, Hash: HashString(chars)}
}

func (s *String) String() string  { return s.Chars }
func (s *String) Type() string    { return "string" }
func (s *String) Kind() Kind      { return KindString }
func (s *String) object() *Header { return &s.Header }

// HashString computes the FNV-1a hash of s, as used for both the intern
// table and every other hash table keyed by interned strings.
func HashString(s string) uint32 {
	var hash uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		hash ^= uint32(s[i])
		hash *= 16777619
	}
	return hash
}
