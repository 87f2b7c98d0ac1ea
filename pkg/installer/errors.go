package installer

import "fmt"

// VendorCollision is returned when two distinct package ids would
// install to the same path under the vendor tree.
type VendorCollision struct {
	First, Second string
	Target        string
}

func (e *VendorCollision) Error() string {
	return fmt.Sprintf("packages %q and %q both target vendor path %q", e.First, e.Second, e.Target)
}
