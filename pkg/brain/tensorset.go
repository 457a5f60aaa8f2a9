package brain

import "github.com/decisionlayer/tickbatch/pkg/tensor"

// TensorSet is an ordered collection of named tensors. Construction
// order is preserved so the feed order stays deterministic.
type TensorSet struct {
	names  []string
	byName map[string]*tensor.Tensor
}

func newTensorSet() *TensorSet {
	return &TensorSet{byName: make(map[string]*tensor.Tensor)}
}

func (s *TensorSet) add(name string, t *tensor.Tensor) {
	if _, dup := s.byName[name]; !dup {
		s.names = append(s.names, name)
	}
	s.byName[name] = t
}

// Names returns the tensor names in construction order.
func (s *TensorSet) Names() []string { return s.names }

// Get returns the named tensor, or nil.
func (s *TensorSet) Get(name string) *tensor.Tensor { return s.byName[name] }

// Len returns the number of tensors.
func (s *TensorSet) Len() int { return len(s.names) }

// Map returns the name→tensor mapping fed to the engine.
func (s *TensorSet) Map() map[string]*tensor.Tensor { return s.byName }
