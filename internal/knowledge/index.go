// Package knowledge stores reference legal texts and retrieves the passages
// most relevant to a question using SQLite full-text search.
package knowledge

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/sentryai/sentry/internal/logging"
)

// Snippet is one retrieved passage and the label of the document it came from.
type Snippet struct {
	Source string  `json:"source"`
	Text   string  `json:"text"`
	Score  float64 `json:"score"`
}

// Index reads and writes the knowledge_chunks table and its FTS mirror.
type Index struct {
	db        *sql.DB
	chunkOpts []ChunkOption
}

func NewIndex(db *sql.DB, opts ...ChunkOption) *Index {
	return &Index{db: db, chunkOpts: opts}
}

// Ingest replaces every chunk of source with the chunks of text and returns
// how many were stored.
func (x *Index) Ingest(ctx context.Context, source, text string) (int, error) {
	chunks := SplitText(text, x.chunkOpts...)

	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin ingest: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM knowledge_chunks WHERE source = ?`, source); err != nil {
		return 0, fmt.Errorf("clear %s: %w", source, err)
	}
	now := time.Now().UnixMicro()
	for _, c := range chunks {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO knowledge_chunks (source, chunk_index, content, created_at)
			VALUES (?, ?, ?, ?)
		`, source, c.Index, c.Text, now); err != nil {
			return 0, fmt.Errorf("insert chunk %d of %s: %w", c.Index, source, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit ingest: %w", err)
	}
	return len(chunks), nil
}

// IngestDir ingests every .txt and .md file in dir, labelled by file name.
func (x *Index) IngestDir(ctx context.Context, dir string) (map[string]int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}
	counts := make(map[string]int)
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".txt" && ext != ".md") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return counts, fmt.Errorf("read %s: %w", e.Name(), err)
		}
		n, err := x.Ingest(ctx, e.Name(), string(data))
		if err != nil {
			return counts, err
		}
		counts[e.Name()] = n
		logging.Infof("[knowledge] ingested %s: %d chunks", e.Name(), n)
	}
	return counts, nil
}

// Count returns the number of stored chunks.
func (x *Index) Count(ctx context.Context) (int, error) {
	var n int
	err := x.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM knowledge_chunks`).Scan(&n)
	return n, err
}

// Search returns up to k passages ranked by relevance. Full-text search is
// tried first; a LIKE scan on the query terms is the fallback.
func (x *Index) Search(ctx context.Context, query string, k int) ([]Snippet, error) {
	if k <= 0 {
		k = 3
	}
	terms := queryTerms(query)
	if len(terms) == 0 {
		return nil, nil
	}

	results, err := x.searchFTS(ctx, terms, k)
	if err != nil {
		logging.Warnf("[knowledge] FTS search failed, using LIKE fallback: %v", err)
	}
	if len(results) > 0 {
		return results, nil
	}
	return x.searchLike(ctx, terms, k)
}

func (x *Index) searchFTS(ctx context.Context, terms []string, k int) ([]Snippet, error) {
	rows, err := x.db.QueryContext(ctx, `
		SELECT c.source, c.content, bm25(knowledge_fts) AS rank
		FROM knowledge_fts f
		JOIN knowledge_chunks c ON c.id = f.rowid
		WHERE knowledge_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, buildFTSQuery(terms), k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Snippet
	for rows.Next() {
		var s Snippet
		var rank float64
		if err := rows.Scan(&s.Source, &s.Text, &rank); err != nil {
			return nil, err
		}
		s.Score = bm25RankToScore(rank)
		results = append(results, s)
	}
	return results, rows.Err()
}

// searchLike scores each chunk by how many query terms it contains.
func (x *Index) searchLike(ctx context.Context, terms []string, k int) ([]Snippet, error) {
	var conds []string
	var args []any
	for _, t := range terms {
		conds = append(conds, "content LIKE ?")
		args = append(args, "%"+t+"%")
	}
	rows, err := x.db.QueryContext(ctx, `
		SELECT source, content FROM knowledge_chunks
		WHERE `+strings.Join(conds, " OR ")+`
		LIMIT 200
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("like search: %w", err)
	}
	defer rows.Close()

	var results []Snippet
	for rows.Next() {
		var s Snippet
		if err := rows.Scan(&s.Source, &s.Text); err != nil {
			return nil, err
		}
		lower := strings.ToLower(s.Text)
		hits := 0
		for _, t := range terms {
			if strings.Contains(lower, t) {
				hits++
			}
		}
		s.Score = float64(hits) / float64(len(terms)) / 2
		results = append(results, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// stopwords are dropped from queries so OR-matching does not rank on articles
// and prepositions.
var stopwords = map[string]bool{
	"a": true, "o": true, "as": true, "os": true, "e": true, "é": true, "de": true, "do": true,
	"da": true, "dos": true, "das": true, "em": true, "no": true, "na": true, "nos": true,
	"nas": true, "um": true, "uma": true, "para": true, "por": true, "com": true, "que": true,
	"se": true, "ao": true, "à": true, "ou": true, "meu": true, "minha": true, "eu": true,
	"qual": true, "quais": true, "como": true, "sobre": true, "posso": true, "pode": true,
	"the": true, "of": true, "and": true, "to": true, "is": true, "what": true,
}

// queryTerms lowercases the query and keeps distinct non-stopword tokens.
func queryTerms(raw string) []string {
	seen := make(map[string]bool)
	var terms []string
	for _, tok := range strings.FieldsFunc(strings.ToLower(raw), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if stopwords[tok] || seen[tok] {
			continue
		}
		seen[tok] = true
		terms = append(terms, tok)
	}
	return terms
}

// buildFTSQuery quotes each term and ORs them; bm25 ranks chunks matching
// more terms higher.
func buildFTSQuery(terms []string) string {
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	return strings.Join(quoted, " OR ")
}

// bm25RankToScore maps SQLite's bm25 rank (negative, lower is better) to 0..1.
func bm25RankToScore(rank float64) float64 {
	if rank >= 0 {
		return 0
	}
	return 1 - 1/(1-rank)
}
