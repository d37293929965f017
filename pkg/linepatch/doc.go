// Package linepatch applies loosely formatted, hand-written diffs to text buffers.
//
// Only lines starting with "+" or "-" carry meaning. A "-old" line directly followed
// by a "+new" line replaces old with new, a lone "-old" deletes old, and a lone
// "+new" inserts new at the cursor left behind by the previous operation. Every
// other line is ignored, which means hunk headers, file markers and context lines
// can be pasted along without harm.
//
// Application never fails: a missing replace target is appended at the end of the
// buffer and a missing delete target is skipped. ApplyWithReport exposes those
// fallbacks for tooling that wants to surface them.
package linepatch
