package ports

// Input is a fuzz input. The lifecycle machine only ever serializes it; reading
// it back goes through an InputLoader.
type Input interface {
	// Serialize returns the exact bytes written to the backing file.
	Serialize() ([]byte, error)
}

// InputLoader deserializes an input from a file path. Implementations must
// open the file exactly once.
type InputLoader interface {
	FromFile(path string) (Input, error)
}

// Rand is the random source consumed by schedulers. Only the sampling
// contract matters; the generator algorithm is the adapter's business.
type Rand interface {
	// Below returns a uniform integer in [0, bound). Below(0) returns 0.
	Below(bound uint64) uint64
}
