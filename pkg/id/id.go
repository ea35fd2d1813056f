package id

import (
	"hash/fnv"
	"os"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
)

var Module = fx.Module("id", fx.Provide(NewNode))

// NewNode builds the process-wide snowflake generator. The node number is
// derived from the hostname so replicas minted on different machines do
// not collide.
func NewNode() (*snowflake.Node, error) {
	host, err := os.Hostname()
	if err != nil {
		host = "campaignhub"
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(host))

	return snowflake.NewNode(int64(h.Sum32() % 1024))
}
