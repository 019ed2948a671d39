package reference

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/signadot/objbridge/wire"
)

// Parse reads the textual form of a descriptor:
//
//	#42              instance id
//	guid:<guid>      content GUID
//	asset:<path>     content path
//	<path>           hierarchy path, e.g. World/Player
func Parse(s string) (wire.Reference, error) {
	switch {
	case s == "":
		return wire.Reference{}, fmt.Errorf("empty reference")
	case strings.HasPrefix(s, "#"):
		id, err := strconv.ParseInt(s[1:], 10, 64)
		if err != nil || id == 0 {
			return wire.Reference{}, fmt.Errorf("invalid instance id in %q", s)
		}
		return wire.Reference{InstanceID: id}, nil
	case strings.HasPrefix(s, "guid:"):
		return wire.Reference{AssetGUID: s[len("guid:"):]}, nil
	case strings.HasPrefix(s, "asset:"):
		return wire.Reference{AssetPath: s[len("asset:"):]}, nil
	}
	return wire.Reference{Path: s}, nil
}
