package arcgis

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/couchcryptid/sheet-ladder-etl/internal/domain"
)

// Field describes one attribute field of a layer.
type Field struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Alias string `json:"alias"`
}

// LayerInfo is the subset of layer metadata the CLI reports.
type LayerInfo struct {
	Name         string  `json:"name"`
	GeometryType string  `json:"geometryType"`
	Fields       []Field `json:"fields"`
}

// FeatureLayer is a feature service layer. It implements pipeline.FeatureSink.
type FeatureLayer struct {
	client *Client
	url    string
	info   LayerInfo
}

// NewFeatureLayer addresses a layer by its REST URL, e.g.
// https://services.arcgis.com/<org>/arcgis/rest/services/<name>/FeatureServer/0.
func NewFeatureLayer(c *Client, layerURL string) *FeatureLayer {
	return &FeatureLayer{client: c, url: layerURL}
}

// URL returns the layer's REST endpoint.
func (l *FeatureLayer) URL() string {
	return l.url
}

// Info returns the metadata fetched when the layer was resolved. It is empty
// for layers built with NewFeatureLayer.
func (l *FeatureLayer) Info() LayerInfo {
	return l.info
}

// Describe fetches the layer name and fields.
func (l *FeatureLayer) Describe(ctx context.Context) (LayerInfo, error) {
	var info LayerInfo
	if err := l.client.getJSON(ctx, l.url, &info); err != nil {
		return LayerInfo{}, fmt.Errorf("describe layer %s: %w", l.url, err)
	}
	return info, nil
}

type addResult struct {
	ObjectID int64     `json:"objectId"`
	Success  bool      `json:"success"`
	Error    *APIError `json:"error"`
}

// SubmitBatch adds features through the layer's addFeatures operation with
// rollback disabled, so each feature succeeds or fails on its own. A response
// without addResults, or with an empty list, is treated as success for the
// whole batch.
func (l *FeatureLayer) SubmitBatch(ctx context.Context, features []domain.Feature) (*domain.BatchResult, error) {
	payload, err := json.Marshal(features)
	if err != nil {
		return nil, fmt.Errorf("serialize features: %w", err)
	}
	form := url.Values{
		"features":          {string(payload)},
		"rollbackOnFailure": {"false"},
	}

	var resp struct {
		AddResults *[]addResult `json:"addResults"`
	}
	if err := l.client.postForm(ctx, l.url+"/addFeatures", form, &resp); err != nil {
		return nil, fmt.Errorf("add features: %w", err)
	}
	if resp.AddResults == nil || len(*resp.AddResults) == 0 {
		return nil, nil
	}

	result := &domain.BatchResult{Items: make([]domain.ItemResult, len(*resp.AddResults))}
	for i, r := range *resp.AddResults {
		item := domain.ItemResult{Success: r.Success, ObjectID: r.ObjectID}
		if r.Error != nil {
			item.Error = r.Error.Message
			if item.Error == "" {
				item.Error = r.Error.Description
			}
		}
		result.Items[i] = item
	}
	return result, nil
}
