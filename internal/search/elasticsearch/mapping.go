package elasticsearch

// DefaultIndexName is used when no index name is configured.
const DefaultIndexName = "storefront_products"

func indexMapping() string {
	return `{
  "settings": {
    "number_of_shards": 1,
    "number_of_replicas": 0,
    "analysis": {
      "analyzer": {
        "autocomplete_analyzer": {
          "type": "custom",
          "tokenizer": "autocomplete_tokenizer",
          "filter": ["lowercase", "asciifolding"]
        },
        "autocomplete_search": {
          "type": "custom",
          "tokenizer": "standard",
          "filter": ["lowercase", "asciifolding"]
        }
      },
      "tokenizer": {
        "autocomplete_tokenizer": {
          "type": "edge_ngram",
          "min_gram": 2,
          "max_gram": 20,
          "token_chars": ["letter", "digit"]
        }
      }
    }
  },
  "mappings": {
    "properties": {
      "id":               { "type": "keyword" },
      "title":            { "type": "text", "analyzer": "english", "fields": { "keyword": { "type": "keyword", "ignore_above": 256 }, "autocomplete": { "type": "text", "analyzer": "autocomplete_analyzer", "search_analyzer": "autocomplete_search" } } },
      "slug":             { "type": "keyword" },
      "description":      { "type": "text", "analyzer": "english" },
      "price":            { "type": "long" },
      "stock":            { "type": "integer" },
      "category_id":      { "type": "keyword" },
      "brand_id":         { "type": "keyword" },
      "colors":           { "type": "keyword" },
      "tags":             { "type": "keyword" },
      "images":           { "type": "keyword", "index": false },
      "aggregate_rating": { "type": "integer" },
      "created_at":       { "type": "date" },
      "updated_at":       { "type": "date" }
    }
  }
}`
}
