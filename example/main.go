package main

import (
	"fmt"
	"log"
	"os"

	"github.com/theflywheel/pmap"
)

func main() {
	base := "example.pmap"
	os.Remove(base + "-buckets")
	os.Remove(base + "-entries")

	m, err := pmap.Open[uint64, uint64](base, 8, pmap.Uint64Codec{}, pmap.Uint64Codec{})
	if err != nil {
		log.Fatalf("failed to open map: %v", err)
	}
	defer m.Close()

	fmt.Println("Persistent map opened successfully")

	for i := uint64(0); i < 10; i++ {
		if err := m.Set(i, i*100); err != nil {
			log.Fatalf("failed to insert key %d: %v", i, err)
		}
	}

	fmt.Println("Inserted 10 key-value pairs")

	for i := uint64(0); i < 15; i += 2 {
		value, found := m.Get(i)
		if found {
			fmt.Printf("Key %d => Value %d\n", i, value)
		} else {
			fmt.Printf("Key %d not found\n", i)
		}
	}

	if err := m.Set(2, 999); err != nil {
		log.Fatalf("failed to update key: %v", err)
	}

	value, found := m.Get(2)
	if found {
		fmt.Printf("Updated key 2 => Value %d\n", value)
	}

	removed := m.Remove(3)
	fmt.Printf("Removed key 3: %v\n", removed)

	fmt.Printf("Live entry count: %d\n", m.Count())

	fmt.Println("Example completed successfully")
}
