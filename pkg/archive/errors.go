package archive

import "fmt"

// UnsafeArchiveEntry is returned when an archive entry's path would
// escape the extraction root.
var UnsafeArchiveEntry = fmt.Errorf("archive entry escapes extraction root")
