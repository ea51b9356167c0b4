package cache

import (
	"sort"
	"strings"
)

// Cache indexes transcripts by contig for overlap lookups. Add every
// transcript before the first lookup; the per-contig interval trees are
// built lazily and rebuilt after further additions.
type Cache struct {
	transcripts map[string][]*Transcript
	trees       map[string]*IntervalTree
}

// New creates a new empty cache.
func New() *Cache {
	return &Cache{
		transcripts: make(map[string][]*Transcript),
		trees:       make(map[string]*IntervalTree),
	}
}

func normalizeChrom(chrom string) string {
	chrom = strings.TrimPrefix(chrom, "chr")
	if chrom == "M" {
		return "MT"
	}
	return chrom
}

// AddTranscript adds a transcript to the cache.
func (c *Cache) AddTranscript(t *Transcript) {
	chrom := normalizeChrom(t.Chrom)
	c.transcripts[chrom] = append(c.transcripts[chrom], t)
	delete(c.trees, chrom)
}

// Index builds the interval tree of every contig. Call it once loading is
// complete to make the cache safe for concurrent lookups.
func (c *Cache) Index() {
	for chrom, ts := range c.transcripts {
		if _, ok := c.trees[chrom]; !ok {
			c.trees[chrom] = BuildIntervalTree(ts)
		}
	}
}

// FindTranscripts returns all transcripts that overlap a genomic position.
func (c *Cache) FindTranscripts(chrom string, pos int64) []*Transcript {
	chrom = normalizeChrom(chrom)
	tree, ok := c.trees[chrom]
	if !ok {
		ts, ok := c.transcripts[chrom]
		if !ok {
			return nil
		}
		tree = BuildIntervalTree(ts)
		c.trees[chrom] = tree
	}
	return tree.FindOverlaps(pos)
}

// GetTranscript returns a specific transcript by ID, or nil if not found.
func (c *Cache) GetTranscript(id string) *Transcript {
	for _, transcripts := range c.transcripts {
		for _, t := range transcripts {
			if t.ID == id {
				return t
			}
		}
	}
	return nil
}

// TranscriptCount returns the total number of transcripts in the cache.
func (c *Cache) TranscriptCount() int {
	count := 0
	for _, transcripts := range c.transcripts {
		count += len(transcripts)
	}
	return count
}

// Chromosomes returns a sorted list of chromosomes in the cache.
func (c *Cache) Chromosomes() []string {
	chroms := make([]string, 0, len(c.transcripts))
	for chrom := range c.transcripts {
		chroms = append(chroms, chrom)
	}
	sort.Strings(chroms)
	return chroms
}
