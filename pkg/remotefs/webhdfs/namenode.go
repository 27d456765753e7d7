package webhdfs

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sir_venger/hdfs_connector/internal/models"
	"github.com/sir_venger/hdfs_connector/pkg/webhdfsproto"
)

const probeTimeout = 2 * time.Second

// ActiveNameNode опрашивает NameNode по очереди и возвращает первый,
// ответивший 200 на GETFILESTATUS корня. Standby отвечает StandbyException.
func ActiveNameNode(ctx context.Context, hc *http.Client, addresses []string, user string) (string, error) {
	if len(addresses) == 0 {
		return "", fmt.Errorf("%w: no namenode address", models.ErrConfiguration)
	}
	var lastErr error
	for _, addr := range addresses {
		if err := probe(ctx, hc, addr, user); err != nil {
			lastErr = err
			continue
		}
		return addr, nil
	}
	return "", fmt.Errorf("%w: no active namenode among %v: %v", models.ErrTransport, addresses, lastErr)
}

func probe(ctx context.Context, hc *http.Client, addr, user string) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	u := baseURL(addr) + "/?" + webhdfsproto.ParamOp + "=" + webhdfsproto.OpGetFileStatus
	if user != "" {
		u += "&" + webhdfsproto.ParamUser + "=" + url.QueryEscape(user)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return failure(resp)
	}
	return resp.Body.Close()
}
