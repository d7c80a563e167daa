// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package transparency

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"strings"

	_ "golang.org/x/crypto/x509roots/fallback"
)

// client fetches the Online mode's policy/key/proof material over
// HTTPS. The blank import above installs a maintained set of root
// certificates as the process-wide fallback (via x509.SetFallbackRoots)
// before this client is constructed; Go's TLS stack uses them when the
// host has no trust store of its own, as before an OS exists, and uses
// the host's store where one is present.
var client = &http.Client{
	Transport: &http.Transport{
		TLSClientConfig: &tls.Config{},
	},
}

// FetchMaterial retrieves the five files boot-transparency validation
// needs (boot policy, witness policy, submitter key, log key, proof
// bundle) from baseURL and returns a ready-to-validate [Config] with
// Status set to Online and Engine set to engine.
func FetchMaterial(ctx context.Context, baseURL string, engine uint) (*Config, error) {
	c := &Config{Status: Online, Engine: engine}

	files := []struct {
		name string
		dst  *[]byte
	}{
		{"policy.json", &c.BootPolicy},
		{"trust_policy", &c.WitnessPolicy},
		{"submit-key.pub", &c.SubmitKey},
		{"log-key.pub", &c.LogKey},
		{"proof-bundle.json", &c.ProofBundle},
	}

	base := strings.TrimRight(baseURL, "/")
	for _, f := range files {
		data, err := fetch(ctx, base+"/"+f.name)
		if err != nil {
			return nil, fmt.Errorf("transparency: fetching %s: %w", f.name, err)
		}
		*f.dst = data
	}

	return c, nil
}

func fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	return io.ReadAll(resp.Body)
}
