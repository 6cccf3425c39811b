package refseq

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// RESTClient resolves accessions against Ensembl's REST sequence
// endpoint, for accessions the local FileStore doesn't carry.
type RESTClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewRESTClient builds a RESTClient targeting the given Ensembl
// assembly mirror ("GRCh37" or "GRCh38"; anything else uses the
// current-assembly host).
func NewRESTClient(assembly string) *RESTClient {
	baseURL := "https://rest.ensembl.org"
	if assembly == "GRCh37" {
		baseURL = "https://grch37.rest.ensembl.org"
	}
	return &RESTClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *RESTClient) Resolve(ctx context.Context, accession string, version string) (*Sequence, error) {
	id := accession
	if version != "" {
		id = accession + "." + version
	}

	url := fmt.Sprintf("%s/sequence/id/%s?type=genomic;content-type=application/json", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("refseq: build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("refseq: REST request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, &NotFoundError{Accession: accession, Version: version}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("refseq: REST API error %d for %s", resp.StatusCode, id)
	}

	var body struct {
		ID  string `json:"id"`
		Seq string `json:"seq"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("refseq: decode REST response: %w", err)
	}

	return &Sequence{Accession: accession, Version: version, Bases: body.Seq}, nil
}
