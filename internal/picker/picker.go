// Package picker assembles the interactive element-picker document: the
// sanitized third-party page plus an injected inert script that highlights
// hovered elements and reports clicks to the parent window.
//
// The script is the only active content in the preview frame, and it talks
// to the trusted controller over postMessage: picker-ready on init,
// picker-select with the element snapshot on click, picker-cancel on Escape.
// The parent validates the message source before trusting anything.
package picker

import (
	"strconv"
	"strings"
)

// Text sent with picker-select is capped so a click on <body> cannot ship
// the whole page across the channel.
const maxTextContent = 500

const overlayStyle = `position: fixed; pointer-events: none; border: 2px solid #007AFF; background: rgba(0, 122, 255, 0.1); border-radius: 4px; z-index: 999999; display: none; transition: all 0.1s ease;`

// elementInfoScript mirrors selector.ElementInfo: tag, id, classes, data-*
// attributes, 1-based same-tag sibling position, and the ancestor chain
// ordered root-first.
const elementInfoScript = `
function getElementInfo(element) {
  var tagName = element.tagName;
  var id = element.id || undefined;
  var classList = Array.prototype.slice.call(element.classList);
  var attributes = {};
  for (var i = 0; i < element.attributes.length; i++) {
    var attr = element.attributes[i];
    if (attr.name.indexOf("data-") === 0) attributes[attr.name] = attr.value;
  }
  var nthOfType = 1;
  var sibling = element.previousElementSibling;
  while (sibling) {
    if (sibling.tagName === tagName) nthOfType++;
    sibling = sibling.previousElementSibling;
  }
  var parentPath = [];
  var parent = element.parentElement;
  while (parent && parent.tagName !== "HTML") {
    var pInfo = { tagName: parent.tagName, id: parent.id || undefined,
      classList: Array.prototype.slice.call(parent.classList), attributes: {}, nthOfType: 1 };
    for (var j = 0; j < parent.attributes.length; j++) {
      var pAttr = parent.attributes[j];
      if (pAttr.name.indexOf("data-") === 0) pInfo.attributes[pAttr.name] = pAttr.value;
    }
    var pSibling = parent.previousElementSibling;
    while (pSibling) {
      if (pSibling.tagName === parent.tagName) pInfo.nthOfType++;
      pSibling = pSibling.previousElementSibling;
    }
    parentPath.unshift(pInfo);
    parent = parent.parentElement;
  }
  return { tagName: tagName, id: id, classList: classList,
    attributes: attributes, nthOfType: nthOfType, parentPath: parentPath };
}
`

const interactionScript = `
var highlightedElement = null;
var pickerOverlay = null;
function createOverlay() {
  var overlay = document.createElement("div");
  overlay.id = "picker-highlight";
  overlay.style.cssText = "__OVERLAY_STYLE__";
  document.body.appendChild(overlay);
  return overlay;
}
function positionOverlay(element) {
  if (!pickerOverlay) pickerOverlay = createOverlay();
  var rect = element.getBoundingClientRect();
  pickerOverlay.style.top = rect.top + "px";
  pickerOverlay.style.left = rect.left + "px";
  pickerOverlay.style.width = rect.width + "px";
  pickerOverlay.style.height = rect.height + "px";
  pickerOverlay.style.display = "block";
}
document.addEventListener("mousemove", function(e) {
  var element = document.elementFromPoint(e.clientX, e.clientY);
  if (element && element !== highlightedElement && element.id !== "picker-highlight") {
    highlightedElement = element;
    positionOverlay(element);
  }
});
document.addEventListener("click", function(e) {
  e.preventDefault();
  e.stopPropagation();
  var element = document.elementFromPoint(e.clientX, e.clientY);
  if (element && element.id !== "picker-highlight") {
    var textContent = element.innerText || element.textContent || "";
    window.parent.postMessage({
      type: "picker-select",
      elementInfo: getElementInfo(element),
      textContent: textContent.trim().replace(/\s+/g, " ").substring(0, __MAX_TEXT__)
    }, "*");
  }
}, true);
document.addEventListener("keydown", function(e) {
  if (e.key === "Escape") {
    window.parent.postMessage({ type: "picker-cancel" }, "*");
  }
});
window.parent.postMessage({ type: "picker-ready" }, "*");
`

// Script returns the full inline picker script, <script> tags included.
func Script() string {
	body := strings.ReplaceAll(interactionScript, "__OVERLAY_STYLE__", overlayStyle)
	body = strings.ReplaceAll(body, "__MAX_TEXT__", strconv.Itoa(maxTextContent))
	return "<script>" + elementInfoScript + body + "</script>"
}

// Inject places the picker script at the end of the sanitized document,
// before </body> when one exists.
func Inject(sanitizedHTML string) string {
	script := Script()
	if strings.Contains(sanitizedHTML, "</body>") {
		return strings.Replace(sanitizedHTML, "</body>", script+"</body>", 1)
	}
	return sanitizedHTML + script
}
