// Package marcone is a client for the Marcone B2B parts SOAP service.
// Envelopes are built by hand; only the part service operations used for
// lookups are supported.
package marcone

import (
	"bytes"
	"context"
	"encoding/xml"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/parts-cli/internal/fetcher"
	"github.com/sells-group/parts-cli/internal/resilience"
)

const (
	partServicePath = "/b2b/parts_v2.asmx"

	// DefaultNamespace is the XML namespace of the part service operations.
	DefaultNamespace = "http://b2b.marcone.com/"
)

// ErrNotFound is returned when no make code yields a part.
var ErrNotFound = eris.New("marcone: part not found")

// PartInformation is one PartInformation_v2 record.
type PartInformation struct {
	PartNumber        string   `xml:"PartNumber" json:"part_number"`
	Make              string   `xml:"Make" json:"make"`
	PartDescription   string   `xml:"PartDescription" json:"part_description"`
	Cost              string   `xml:"Cost" json:"cost,omitempty"`
	CustomerPrice     string   `xml:"CustomerPrice" json:"customer_price,omitempty"`
	ListPrice         string   `xml:"ListPrice" json:"list_price,omitempty"`
	QuantityAvailable string   `xml:"QuantityAvailable" json:"quantity_available,omitempty"`
	Weight            string   `xml:"Weight" json:"weight,omitempty"`
	ImageURL          string   `xml:"ImageURL" json:"image_url,omitempty"`
	Substitutions     []string `xml:"Substitutions>string" json:"substitutions,omitempty"`
}

// Client performs part lookups against the Marcone part service.
type Client interface {
	ExactPartLookup(ctx context.Context, partNumber, makeCode string) ([]PartInformation, error)
	PartLookup(ctx context.Context, partNumber, makeCode string) ([]PartInformation, error)
}

// Option configures the client.
type Option func(*soapClient)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *soapClient) {
		c.http = hc
	}
}

// WithNamespace overrides the SOAP operation namespace.
func WithNamespace(ns string) Option {
	return func(c *soapClient) {
		if ns != "" {
			c.namespace = ns
		}
	}
}

type soapClient struct {
	baseURL   string
	username  string
	password  string
	namespace string
	http      *http.Client
}

// NewClient creates a part service client for baseURL (the test or prod
// host, without the service path).
func NewClient(baseURL, username, password string, opts ...Option) Client {
	c := &soapClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		username:  username,
		password:  password,
		namespace: DefaultNamespace,
		http:      &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ExactPartLookup returns parts that match make and part number exactly.
func (c *soapClient) ExactPartLookup(ctx context.Context, partNumber, makeCode string) ([]PartInformation, error) {
	return c.lookup(ctx, "ExactPartLookup", []param{
		{"userName", c.username},
		{"password", c.password},
		{"make", makeCode},
		{"partNumber", partNumber},
	})
}

// PartLookup runs a partial part number search. makeCode may be empty.
func (c *soapClient) PartLookup(ctx context.Context, partNumber, makeCode string) ([]PartInformation, error) {
	return c.lookup(ctx, "PartLookup", []param{
		{"userName", c.username},
		{"password", c.password},
		{"make", makeCode},
		{"partnumber", partNumber},
	})
}

type param struct {
	name  string
	value string
}

type fault struct {
	Code   string `xml:"faultcode"`
	String string `xml:"faultstring"`
}

func (c *soapClient) lookup(ctx context.Context, op string, params []param) ([]PartInformation, error) {
	body, err := c.call(ctx, op, params)
	if err != nil {
		return nil, err
	}

	faults, err := fetcher.DecodeElements[fault](bytes.NewReader(body), "Fault")
	if err != nil {
		return nil, eris.Wrapf(err, "marcone: %s decode", op)
	}
	if len(faults) > 0 {
		return nil, eris.Errorf("marcone: %s fault %s: %s", op, faults[0].Code, faults[0].String)
	}

	parts, err := fetcher.DecodeElements[PartInformation](bytes.NewReader(body), "PartInformation_v2")
	if err != nil {
		return nil, eris.Wrapf(err, "marcone: %s decode", op)
	}
	return parts, nil
}

func (c *soapClient) call(ctx context.Context, op string, params []param) ([]byte, error) {
	envelope, err := buildEnvelope(c.namespace, op, params)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+partServicePath, bytes.NewReader(envelope))
	if err != nil {
		return nil, eris.Wrap(err, "marcone: create request")
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", `"`+c.namespace+op+`"`)
	req.SetBasicAuth(c.username, c.password)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "marcone: %s send", op)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrapf(err, "marcone: %s read", op)
	}

	// ASMX services report SOAP faults with a 500 status; let the fault
	// decoder produce a readable error for those.
	if resp.StatusCode != http.StatusOK && !bytes.Contains(body, []byte("Fault>")) {
		return nil, resilience.StatusError("marcone", resp.StatusCode, body)
	}
	return body, nil
}

func buildEnvelope(namespace, op string, params []param) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.WriteString(`<soap:Envelope xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" xmlns:xsd="http://www.w3.org/2001/XMLSchema" xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"><soap:Body>`)
	buf.WriteString(`<` + op + ` xmlns="` + namespace + `">`)
	for _, p := range params {
		buf.WriteString("<" + p.name + ">")
		if err := xml.EscapeText(&buf, []byte(p.value)); err != nil {
			return nil, eris.Wrap(err, "marcone: escape param")
		}
		buf.WriteString("</" + p.name + ">")
	}
	buf.WriteString(`</` + op + `></soap:Body></soap:Envelope>`)
	return buf.Bytes(), nil
}
