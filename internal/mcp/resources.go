package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"pyth-lazer-mcp/internal/domain"
)

func registerResources(server *sdkmcp.Server, history HistoryReader) {
	server.AddResource(&sdkmcp.Resource{
		URI:         "pyth://feeds",
		Name:        "feeds",
		Description: "Full catalog of price feeds across all asset classes",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
		feeds, err := history.GetSymbols(ctx, "")
		if err != nil {
			return nil, fmt.Errorf("failed to fetch the feed catalog")
		}
		return jsonResource(req.Params.URI, feeds)
	})

	server.AddResourceTemplate(&sdkmcp.ResourceTemplate{
		URITemplate: "pyth://feeds/{asset_type}",
		Name:        "feeds-by-asset-type",
		Description: "Price feeds filtered by asset type (crypto, fx, equity, metal, rates, commodity, funding-rate)",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
		parsed, err := url.Parse(req.Params.URI)
		if err != nil || parsed.Scheme != "pyth" || parsed.Host != "feeds" {
			return nil, sdkmcp.ResourceNotFoundError(req.Params.URI)
		}
		assetType := strings.Trim(strings.TrimSpace(parsed.Path), "/")
		if !domain.IsAssetType(assetType) {
			return nil, sdkmcp.ResourceNotFoundError(req.Params.URI)
		}

		feeds, err := history.GetSymbols(ctx, assetType)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch the feed catalog")
		}
		return jsonResource(req.Params.URI, feeds)
	})
}

func jsonResource(uri string, payload any) (*sdkmcp.ReadResourceResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &sdkmcp.ReadResourceResult{
		Contents: []*sdkmcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(body),
		}},
	}, nil
}
