package cache

import (
	"fmt"
	"testing"
	"time"
)

func BenchmarkTTL_Put(b *testing.B) {
	c := NewTTL[string, bool](10000, 5*time.Minute)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Put(fmt.Sprintf("key-%d", i), true)
	}
}

func BenchmarkTTL_Get_Hit(b *testing.B) {
	c := NewTTL[string, bool](10000, 5*time.Minute)
	for i := 0; i < 10000; i++ {
		c.Put(fmt.Sprintf("key-%d", i), true)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Get(fmt.Sprintf("key-%d", i%10000))
	}
}

func BenchmarkTTL_Get_Miss(b *testing.B) {
	c := NewTTL[string, bool](10000, 5*time.Minute)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Get(fmt.Sprintf("miss-%d", i))
	}
}

func BenchmarkTTL_Put_Eviction(b *testing.B) {
	c := NewTTL[string, bool](100, 5*time.Minute)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Put(fmt.Sprintf("key-%d", i), true)
	}
}
