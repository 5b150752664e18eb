package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/KeithOmondi/kian-optics/internal/models"
)

// Indexer is what handlers depend on; the Elasticsearch-backed Index
// implements it and tests substitute a stub.
type Indexer interface {
	IndexProduct(ctx context.Context, p *models.Product) error
	DeleteProduct(ctx context.Context, id uint) error
	Search(ctx context.Context, query string, from, size int) (int64, []models.Product, error)
}

type Index struct {
	ES    *elasticsearch.Client
	Index string
}

func NewIndex(es *elasticsearch.Client) *Index {
	return &Index{ES: es, Index: ProductIndex}
}

func (ix *Index) IndexProduct(ctx context.Context, p *models.Product) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}

	res, err := ix.ES.Index(
		ix.Index,
		bytes.NewReader(data),
		ix.ES.Index.WithDocumentID(strconv.FormatUint(uint64(p.ID), 10)),
		ix.ES.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("search: index product %d failed: %w", p.ID, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("search: index product %d: %s", p.ID, res.Status())
	}
	return nil
}

func (ix *Index) DeleteProduct(ctx context.Context, id uint) error {
	res, err := ix.ES.Delete(
		ix.Index,
		strconv.FormatUint(uint64(id), 10),
		ix.ES.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("search: delete product %d failed: %w", id, err)
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("search: delete product %d: %s", id, res.Status())
	}
	return nil
}

func (ix *Index) Search(ctx context.Context, query string, from, size int) (int64, []models.Product, error) {
	body := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     query,
				"fields":    []string{"name^2", "description"},
				"fuzziness": "AUTO",
			},
		},
		"from": from,
		"size": size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, err
	}

	res, err := ix.ES.Search(
		ix.ES.Search.WithContext(ctx),
		ix.ES.Search.WithIndex(ix.Index),
		ix.ES.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("search: query failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return 0, nil, fmt.Errorf("search: query error: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source models.Product `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, err
	}

	prods := make([]models.Product, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		prods[i] = hit.Source
	}
	return r.Hits.Total.Value, prods, nil
}
