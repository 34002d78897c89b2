package diagram

// Stylesheet holds the keyframes referenced by rendered elements and the
// hover rules for interactive nodes. Pages embed it once.
const Stylesheet = `
@keyframes deck-fade { from { opacity: 0; } to { opacity: var(--deck-final, 1); } }
@keyframes deck-grow { from { transform: scale(0); } to { transform: scale(1); } }
@keyframes deck-draw { from { stroke-dashoffset: 1; } to { stroke-dashoffset: 0; } }

svg.deck-diagram { width: 100%; height: auto; overflow: visible; }
svg.deck-diagram .deck-shape {
  transform-box: fill-box;
  transform-origin: center;
  transition: scale 200ms ease, fill-opacity 200ms ease;
}
svg.deck-diagram .deck-hover:hover .deck-shape { scale: 1.15; fill-opacity: 0.3; }
svg.deck-diagram .deck-label { fill: #fff; font-size: 12px; }
svg.deck-diagram .deck-icon { font-size: 24px; }
svg.deck-diagram .deck-edge-label { fill: #b0b0b0; font-size: 11px; }
`
