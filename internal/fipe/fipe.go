// Package fipe is a typed client for the FIPE vehicle pricing API.
//
// Every call goes through an httpclient.Client, so lookups share its rate
// limit and retry policy.
package fipe

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/gaborage/resilient-http/httpclient"
)

// DefaultBaseURL is the public FIPE API root
const DefaultBaseURL = "https://parallelum.com.br/fipe/api/v1"

// DefaultConcurrency bounds parallel lookups in AllModels
const DefaultConcurrency = 4

// VehicleType is the first path segment of every FIPE lookup
type VehicleType string

const (
	Cars        VehicleType = "carros"
	Motorcycles VehicleType = "motos"
	Trucks      VehicleType = "caminhoes"
)

// ErrUnknownVehicleType is returned by ParseVehicleType
var ErrUnknownVehicleType = errors.New("fipe: unknown vehicle type")

// ParseVehicleType accepts the FIPE segment or its English alias.
func ParseVehicleType(s string) (VehicleType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "carros", "cars", "car":
		return Cars, nil
	case "motos", "motorcycles", "motorcycle":
		return Motorcycles, nil
	case "caminhoes", "trucks", "truck":
		return Trucks, nil
	}
	return "", fmt.Errorf("%w: %q (want carros, motos or caminhoes)", ErrUnknownVehicleType, s)
}

// Brand is a vehicle manufacturer
type Brand struct {
	Code string `json:"codigo"`
	Name string `json:"nome"`
}

// Model is a vehicle model of one brand
type Model struct {
	Code int    `json:"codigo"`
	Name string `json:"nome"`
}

// Year identifies a model year and fuel, e.g. "2014-3"
type Year struct {
	Code string `json:"codigo"`
	Name string `json:"nome"`
}

// Models is the models listing of one brand
type Models struct {
	Models []Model `json:"modelos"`
	Years  []Year  `json:"anos"`
}

// BrandModels pairs a brand with its models
type BrandModels struct {
	Brand  Brand
	Models []Model
}

// Price is the FIPE reference price of one vehicle
type Price struct {
	VehicleType    int    `json:"TipoVeiculo"`
	Value          string `json:"Valor"`
	Brand          string `json:"Marca"`
	Model          string `json:"Modelo"`
	ModelYear      int    `json:"AnoModelo"`
	Fuel           string `json:"Combustivel"`
	FipeCode       string `json:"CodigoFipe"`
	ReferenceMonth string `json:"MesReferencia"`
	FuelCode       string `json:"SiglaCombustivel"`
}

// Client queries the FIPE API
type Client struct {
	http        httpclient.Client
	concurrency int
	inflight    singleflight.Group
}

// Option customizes a Client
type Option func(*Client)

// WithConcurrency bounds parallel lookups in AllModels; values below 1 are ignored.
func WithConcurrency(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// New creates a Client. Paths are relative, so hc should carry the FIPE base URL.
func New(hc httpclient.Client, opts ...Option) *Client {
	c := &Client{http: hc, concurrency: DefaultConcurrency}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Brands lists the brands of a vehicle type.
func (c *Client) Brands(ctx context.Context, vt VehicleType) ([]Brand, error) {
	return lookup[[]Brand](ctx, c, path(vt, "marcas"))
}

// Models lists the models and years of a brand.
func (c *Client) Models(ctx context.Context, vt VehicleType, brand string) (*Models, error) {
	m, err := lookup[Models](ctx, c, path(vt, "marcas", brand, "modelos"))
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// AllModels lists the models of every brand. Lookups run in parallel up to the
// configured concurrency; the first failure cancels the rest. Results keep the
// order of Brands.
func (c *Client) AllModels(ctx context.Context, vt VehicleType) ([]BrandModels, error) {
	brands, err := c.Brands(ctx, vt)
	if err != nil {
		return nil, err
	}

	out := make([]BrandModels, len(brands))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, b := range brands {
		g.Go(func() error {
			m, err := c.Models(gctx, vt, b.Code)
			if err != nil {
				return fmt.Errorf("brand %s: %w", b.Code, err)
			}
			out[i] = BrandModels{Brand: b, Models: m.Models}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Years lists the model years of a model.
func (c *Client) Years(ctx context.Context, vt VehicleType, brand, model string) ([]Year, error) {
	return lookup[[]Year](ctx, c, path(vt, "marcas", brand, "modelos", model, "anos"))
}

// Price fetches the reference price of one model year.
func (c *Client) Price(ctx context.Context, vt VehicleType, brand, model, year string) (*Price, error) {
	p, err := lookup[Price](ctx, c, path(vt, "marcas", brand, "modelos", model, "anos", year))
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// lookup collapses concurrent requests for the same path into one call.
// Callers then share the decoded value and must not modify it. The shared
// call runs detached from any single caller's cancellation; each caller
// stops waiting when its own ctx is done.
func lookup[T any](ctx context.Context, c *Client, p string) (T, error) {
	var zero T
	ch := c.inflight.DoChan(p, func() (any, error) {
		return httpclient.GetAs[T](context.WithoutCancel(ctx), c.http, p, nil)
	})
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

func path(vt VehicleType, segments ...string) string {
	escaped := make([]string, 0, len(segments)+1)
	escaped = append(escaped, string(vt))
	for _, s := range segments {
		escaped = append(escaped, url.PathEscape(s))
	}
	return "/" + strings.Join(escaped, "/")
}
