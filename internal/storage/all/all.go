// Package all registers every storage backend with the factory. Import it
// for side effects from cmd wiring; config selects which backend runs.
package all

import (
	_ "sheetetl/internal/storage/postgres"
	_ "sheetetl/internal/storage/sqlite"
)
