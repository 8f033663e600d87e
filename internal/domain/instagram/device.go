package instagram

import (
	"crypto/md5"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

const (
	appVersion     = "222.0.0.13.114"
	appVersionCode = "350696709"
	appID          = "567067343352427"
	locale         = "en_US"
)

var deviceStrings = []string{
	"26/8.0.0; 480dpi; 1080x1920; samsung; SM-G930F; herolte; samsungexynos8890",
	"28/9; 420dpi; 1080x2220; samsung; SM-G960F; starlte; samsungexynos9810",
	"29/10; 560dpi; 1440x2960; samsung; SM-G965F; star2lte; samsungexynos9810",
	"28/9; 480dpi; 1080x2160; OnePlus; ONEPLUS A6003; OnePlus6; qcom",
	"29/10; 440dpi; 1080x2340; Xiaomi; Mi 9T; davinci; qcom",
	"27/8.1.0; 420dpi; 1080x2160; Google; Pixel 2 XL; taimen; taimen",
}

// deviceNamespace keeps identifiers derived from the same username stable
// across runs.
var deviceNamespace = uuid.MustParse("6f1c1c7e-4b0a-3c1e-9f42-5a9d1f7f0c11")

// GenerateDevice derives a deterministic device identity from seed.
func GenerateDevice(seed string) Device {
	sum := md5.Sum([]byte(seed))
	device := deviceStrings[binary.BigEndian.Uint32(sum[:4])%uint32(len(deviceStrings))]

	derive := func(kind string) string {
		return uuid.NewMD5(deviceNamespace, []byte(kind+":"+seed)).String()
	}

	return Device{
		DeviceString:   device,
		AndroidID:      "android-" + hex.EncodeToString(sum[:])[:16],
		UUID:           derive("uuid"),
		PhoneID:        derive("phone"),
		AdID:           derive("adid"),
		FamilyDeviceID: derive("family"),
		UserAgent:      fmt.Sprintf("Instagram %s Android (%s; %s; %s)", appVersion, device, locale, appVersionCode),
	}
}
