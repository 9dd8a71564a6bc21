// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package csync

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSliceAppendAndItems(t *testing.T) {
	s := NewSlice[int]()
	s.Append(1)
	s.Append(2)

	items := s.Items()
	require.Equal(t, []int{1, 2}, items)

	items[0] = 99
	assert.Equal(t, []int{1, 2}, s.Items(), "Items returns a copy")
}

func TestSliceRangeStopsEarly(t *testing.T) {
	s := NewSlice[string]()
	s.Append("a")
	s.Append("b")
	s.Append("c")

	var seen []string
	s.Range(func(_ int, item string) bool {
		seen = append(seen, item)
		return item != "b"
	})
	assert.Equal(t, []string{"a", "b"}, seen)
}

func TestSliceSetReplacesContents(t *testing.T) {
	s := NewSlice[int]()
	s.Append(1)
	s.Set([]int{7, 8})
	assert.Equal(t, []int{7, 8}, s.Items())
}

func TestSliceConcurrentAppend(t *testing.T) {
	s := NewSlice[int]()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			s.Append(n)
		}(i)
	}
	wg.Wait()
	assert.Len(t, s.Items(), 50)
}
