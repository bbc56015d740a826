package rag

// Result is the outcome of a query: either an Answer or a Failure.
type Result interface {
	isResult()
}

// Answer is a grounded answer. Sources lists the source of every retrieved
// chunk in retrieval order, duplicates included.
type Answer struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

// Failure is a query that could not be answered.
type Failure struct {
	Message string `json:"error"`
	Cause   error  `json:"-"`
}

func (Answer) isResult()  {}
func (Failure) isResult() {}

func failed(err error) Failure {
	return Failure{Message: err.Error(), Cause: err}
}
