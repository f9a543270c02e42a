package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/OFFIS-RIT/threatmap/internal/storage"
	"github.com/OFFIS-RIT/threatmap/internal/util"
	"github.com/OFFIS-RIT/threatmap/pkg/ai"
	oai "github.com/OFFIS-RIT/threatmap/pkg/ai/ollama"
	gai "github.com/OFFIS-RIT/threatmap/pkg/ai/openai"
	"github.com/OFFIS-RIT/threatmap/pkg/graph"
	"github.com/OFFIS-RIT/threatmap/pkg/loader"
	loaderio "github.com/OFFIS-RIT/threatmap/pkg/loader/io"
	loaders3 "github.com/OFFIS-RIT/threatmap/pkg/loader/s3"
	"github.com/OFFIS-RIT/threatmap/pkg/ner"
	"github.com/OFFIS-RIT/threatmap/pkg/ner/hf"
	"github.com/OFFIS-RIT/threatmap/pkg/ner/llm"
)

// paths are the artifact locations of one pipeline run. Relative file names
// resolve against the data directory.
type paths struct {
	DataDir string

	PDFDir        string
	CableWorkbook string
	NewsWorkbook  string

	PDFTextDir   string
	CableTextDir string
	NewsTextDir  string

	CombinedEntities string
	CleanedEntities  string
	RecordLog        string
	Quarantine       string
	Relationships    string
	Sanitized        string
	Network          string
}

func defaultPaths() paths {
	dataDir := util.GetEnvString("DATA_DIR", "./processed_data")
	return paths{
		DataDir: dataDir,

		PDFDir:        util.GetEnvString("PDF_DIR", "./data/pdfs"),
		CableWorkbook: util.GetEnvString("CABLE_WORKBOOK", "./data/wikileaks_parsed.xlsx"),
		NewsWorkbook:  util.GetEnvString("NEWS_WORKBOOK", "./data/news_excerpts_parsed.xlsx"),

		PDFTextDir:   util.GetEnvString("PDF_TEXT_DIR", "pdf_texts"),
		CableTextDir: util.GetEnvString("CABLE_TEXT_DIR", "wikileaks_texts"),
		NewsTextDir:  util.GetEnvString("NEWS_TEXT_DIR", "news_texts"),

		CombinedEntities: "combined_entities.json",
		CleanedEntities:  "cleaned_filtered_entities.json",
		RecordLog:        "extracted_relationships.ndjson",
		Quarantine:       "quarantined_pairs.ndjson",
		Relationships:    "extracted_relationships.json",
		Sanitized:        "cleaned_extracted_relationships.json",
		Network:          "network.json",
	}
}

// resolve returns p below the data directory unless it is absolute.
func (p paths) resolve(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(p.DataDir, name)
}

func newAIClient() (ai.GraphAIClient, error) {
	extractModel := util.GetEnvString("AI_CHAT_EXTRACT_MODEL", "gpt-4o-mini")

	switch adapter := util.GetEnvString("AI_ADAPTER", "openai"); adapter {
	case "ollama":
		client, err := oai.NewGraphOllamaClient(oai.NewGraphOllamaClientParams{
			DescriptionModel: util.GetEnv("AI_CHAT_DESCRIBE_MODEL"),
			ExtractionModel:  extractModel,

			BaseURL: util.GetEnv("AI_CHAT_URL"),
			ApiKey:  util.GetEnv("AI_CHAT_KEY"),

			MaxConcurrentRequests: int64(util.GetEnvInt("AI_MAX_CONCURRENT_REQUESTS", 1)),
		})
		if err != nil {
			return nil, fmt.Errorf("could not create Ollama client: %w", err)
		}
		return client, nil
	case "openai":
		return gai.NewGraphOpenAIClient(gai.NewGraphOpenAIClientParams{
			DescriptionModel: util.GetEnv("AI_CHAT_DESCRIBE_MODEL"),
			ExtractionModel:  extractModel,

			ChatURL: util.GetEnv("AI_CHAT_URL"),
			ChatKey: util.GetEnv("AI_CHAT_KEY"),
		}), nil
	default:
		return nil, fmt.Errorf("unknown AI_ADAPTER %q", adapter)
	}
}

func newTagger(threshold float64) (ner.Tagger, error) {
	switch adapter := util.GetEnvString("NER_ADAPTER", "hf"); adapter {
	case "hf":
		return hf.NewHFTagger(hf.NewHFTaggerParams{
			URL:         util.GetEnv("NER_URL"),
			Key:         util.GetEnv("NER_KEY"),
			Threshold:   threshold,
			MaxAttempts: util.GetEnvInt("NER_MAX_ATTEMPTS", 5),
			RetryDelay:  util.GetEnvDuration("NER_RETRY_DELAY", 2*time.Second),
		})
	case "llm":
		client, err := newAIClient()
		if err != nil {
			return nil, err
		}
		return llm.NewLLMTagger(llm.NewLLMTaggerParams{
			Client:    client,
			Threshold: threshold,
			Model:     util.GetEnv("NER_MODEL"),
		})
	default:
		return nil, fmt.Errorf("unknown NER_ADAPTER %q", adapter)
	}
}

func newGraphClient() (*graph.GraphClient, error) {
	return graph.NewGraphClient(graph.NewGraphClientParams{
		MaxAttempts:      util.GetEnvInt("EXTRACT_MAX_ATTEMPTS", 8),
		SchemaAttempts:   util.GetEnvInt("EXTRACT_SCHEMA_ATTEMPTS", 5),
		RetryDelay:       util.GetEnvDuration("EXTRACT_RETRY_DELAY", 5*time.Second),
		MaxRetryDelay:    util.GetEnvDuration("EXTRACT_MAX_RETRY_DELAY", 2*time.Minute),
		MaxContextTokens: util.GetEnvInt("EXTRACT_MAX_CONTEXT_TOKENS", 3000),
		Model:            util.GetEnv("AI_CHAT_EXTRACT_MODEL"),
	})
}

// newDocumentSource serves the extracted texts from disk, or from S3 when
// DOCUMENT_SOURCE=s3. For S3 the directories are key prefixes.
func newDocumentSource(ctx context.Context, p paths) (loader.DocumentSource, error) {
	params := loader.NewDirectorySourceParams{
		NewsPrefix: util.GetEnvString("NEWS_ID_PREFIX", loader.DefaultNewsPrefix),
	}

	switch kind := util.GetEnvString("DOCUMENT_SOURCE", "fs"); kind {
	case "fs":
		params.NewsDir = p.resolve(p.NewsTextDir)
		params.CableDir = p.resolve(p.CableTextDir)
		params.Loader = loaderio.NewIOGraphFileLoader()
	case "s3":
		s3Params := storage.S3ParamsFromEnv()
		l, err := loaders3.NewS3GraphFileLoader(ctx, loaders3.NewS3GraphFileLoaderParams{
			Bucket:    s3Params.Bucket,
			Prefix:    s3Params.Prefix,
			Endpoint:  s3Params.Endpoint,
			Region:    s3Params.Region,
			AccessKey: s3Params.AccessKey,
			SecretKey: s3Params.SecretKey,
		})
		if err != nil {
			return nil, fmt.Errorf("could not create S3 document loader: %w", err)
		}
		params.NewsDir = p.NewsTextDir
		params.CableDir = p.CableTextDir
		params.Loader = l
	default:
		return nil, fmt.Errorf("unknown DOCUMENT_SOURCE %q", kind)
	}

	return loader.NewDirectorySource(params), nil
}
