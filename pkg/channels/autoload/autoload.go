// Package autoload registers every channel factory through blank imports.
package autoload

import (
	_ "github.com/ohtakaisei/ronpaou/pkg/channels/telegram"
	_ "github.com/ohtakaisei/ronpaou/pkg/channels/web"
)
