package cloudinary

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/t2bot/image-backup-proxy/common"
	"github.com/t2bot/image-backup-proxy/common/config"
	"github.com/t2bot/image-backup-proxy/common/rcontext"
	"github.com/t2bot/image-backup-proxy/metrics"
	"github.com/t2bot/image-backup-proxy/util"
)

const userAgent = "image-backup-proxy"

// Client talks to the admin, upload, and delivery endpoints of the image host.
// It is safe for concurrent use.
type Client struct {
	conf     config.CloudinaryConfig
	http     *http.Client
	breakers *sync.Map
}

func NewClient(conf config.CloudinaryConfig) *Client {
	timeout := time.Duration(conf.TimeoutSeconds) * time.Second
	return &Client{
		conf:     conf,
		http:     &http.Client{Timeout: timeout},
		breakers: &sync.Map{},
	}
}

func (c *Client) apiUrl(path string, query url.Values) string {
	target := util.MakeUrl(c.conf.ApiBaseUrl, url.PathEscape(c.conf.CloudName), path)
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	return target
}

func (c *Client) doRequest(ctx rcontext.RequestContext, operation string, method string, target string, body interface{}, authenticated bool, result interface{}) error {
	if authenticated && (c.conf.ApiKey == "" || c.conf.ApiSecret == "") {
		return common.ErrMissingCredentials
	}

	ctx.Log.Debugf("Calling %s %s", method, redactedUrl(target))
	err := c.doBreakerCall(ctx, target, func() error {
		var reqBody io.Reader
		if body != nil {
			b, err := json.Marshal(body)
			if err != nil {
				return err
			}
			reqBody = bytes.NewReader(b)
		}

		req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
		if err != nil {
			return err
		}
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json; charset=UTF-8")
		}
		if authenticated {
			req.SetBasicAuth(c.conf.ApiKey, c.conf.ApiSecret)
		}

		res, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer res.Body.Close()

		contents, err := io.ReadAll(res.Body)
		if err != nil {
			return err
		}
		if res.StatusCode < 200 || res.StatusCode > 299 {
			return newApiError(res.StatusCode, contents)
		}

		if result != nil {
			if err = json.Unmarshal(contents, result); err != nil {
				return errors.Wrap(err, "error decoding api response")
			}
		}
		return nil
	})

	metrics.RemoteApiCalls.With(prometheus.Labels{"operation": operation, "result": metrics.CallResult(err)}).Inc()
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, redactedUrl(target))
	}
	return nil
}

func redactedUrl(target string) string {
	u, err := url.Parse(target)
	if err != nil {
		return target
	}
	u.User = nil
	u.RawQuery = util.LogSafeQuery(u.Query())
	return u.String()
}
