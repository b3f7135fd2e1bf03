package irq

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_MaskSerializesSections(t *testing.T) {
	var m Mask
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				s := m.Disable()
				counter++
				m.Restore(s)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 8000, counter)
	require.False(t, m.Masked())
}

func Test_MaskedReportsOpenSection(t *testing.T) {
	var m Mask
	require.False(t, m.Masked())

	s := m.Disable()
	require.True(t, m.Masked())
	m.Restore(s)
	require.False(t, m.Masked())

	// Zero state does nothing.
	m.Restore(State{})
	require.False(t, m.Masked())
}
