package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"airdrop-distributor/pkg/models"
)

func TestSelectEntries(t *testing.T) {
	entries := []models.ProofEntry{
		{Index: 2, Amount: 10},
		{Index: 7, Amount: 20},
	}

	assert.Equal(t, entries, selectEntries(entries, -1), "every allocation by default")
	assert.Equal(t, []models.ProofEntry{entries[1]}, selectEntries(entries, 7))
	assert.Empty(t, selectEntries(entries, 3))
	assert.Empty(t, selectEntries(nil, -1))
}
