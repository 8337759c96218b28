package uid

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/labstack/gommon/log"
)

var (
	node    *snowflake.Node
	initErr error
	once    sync.Once
)

// Init sets up the generator for this process. machineID must be unique
// among processes writing to the same database (0-1023).
// Only the first call sets up the node, later calls return its result.
func Init(machineID int64) error {
	once.Do(func() {
		var err error
		if node, err = snowflake.NewNode(machineID); err != nil {
			initErr = fmt.Errorf("failed to initialize snowflake node: %w", err)
		}
	})
	return initErr
}

// Generate returns a new upload report id.
func Generate() int64 {
	if node == nil {
		log.Fatalf("uid package not initialized")
	}
	return node.Generate().Int64()
}
