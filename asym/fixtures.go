package asym

import (
	"encoding/hex"
	"sync"
)

// Fixed demonstration keys. They exist so the engine self-test has known
// material to exercise; they are public and must never protect anything.
var (
	fixturesOnce sync.Once
	fixtures     *Fixtures
)

// Fixtures holds the demonstration key set.
type Fixtures struct {
	// RSA is a 1024-bit CRT-form key with e = 65537.
	RSA KeyMaterial
	// RSASmallE is a 512-bit CRT-form key with e = 3.
	RSASmallE KeyMaterial
	// DSA is a 1024/160-bit key in {p, q, g, y, x} form.
	DSA KeyMaterial
}

// DemoFixtures returns copies of the demonstration keys, decoding them on
// first use.
func DemoFixtures() Fixtures {
	fixturesOnce.Do(func() {
		fixtures = &Fixtures{
			RSA:       decodeFixture(rsa1024Hex[:]),
			RSASmallE: decodeFixture(rsa512Hex[:]),
			DSA:       decodeFixture(dsaHex[:]),
		}
	})
	return Fixtures{
		RSA:       fixtures.RSA.Clone(),
		RSASmallE: fixtures.RSASmallE.Clone(),
		DSA:       fixtures.DSA.Clone(),
	}
}

func decodeFixture(hexes []string) KeyMaterial {
	out := make(KeyMaterial, len(hexes))
	for i, h := range hexes {
		b, err := hex.DecodeString(h)
		if err != nil {
			panic("asym: corrupt fixture: " + err.Error())
		}
		out[i] = b
	}
	return out
}

// n, d, e, p, q, dP, dQ, qInv
var rsa1024Hex = [...]string{
	"c1dcd38de03facc0d14a047b3350bb26fa76e0726837483114ca297ae55830ea" +
		"16993ab6e85918eb40b2b8e03352271acea570003727db64c46b42ab1eb834cf" +
		"7c5d6aeedd2650ef98152c8d760db8578511cbc0bbcc287637369524542364ea" +
		"df744dda5ba79f9e77b92abd65f2f711f020237c346925d38a94970e8c42713d",
	"273b9878baec47fad1a0281e02b990d68793ad429a02ae1278c19cf969169af7" +
		"94d137c7b267ed9a1682d4d552ad8a8a6b4da1c7f961908de90e47f4b787d1ef" +
		"dd1164e59d44278d65d2ac8759cc56a0dec8b2dfb444e84dd22344267176898c" +
		"9061e882cf1405661b3d19f55b102397455fb351a0e5e3773ddc314857f8cd05",
	"010001",
	"f3fd6a77eb904483174a6973a576bc2bef1f279242c37ca60d0188c19b5cd07b" +
		"c20f74e7d4062241b8b4572e2797488d13107a5c56382f00240989ae352cd693",
	"cb67be15e4193f1989614559599e8ffac373554987fb2127755de79f0c240018" +
		"fdce9aaa76fa04969eb9101eaccb28090b04f43da57de9da3a23ff41a0462aef",
	"c66433b348e6a8ded30c5d8c7c697c7e58d4434fe95b9d3a43ef106d24d02671" +
		"cb0cd8693cfcb3d42ec4ecf2899cb8908584eb89b34dc1e1e26ba2f8f521fd63",
	"0b5018cd64e356941804f5f3733d936a72066f1ee8d639d0d50145099e863e0f" +
		"25c6a0e98c36799cdaf516056ebcd9dc2ee5b6a3db1976b1317ca10cc85a3eb7",
	"bc199610ab24ef76c5346c513c89fe10e63089ef41f4bfcdb12bfc631405a922" +
		"3d80fecad62f3cedf8c5b3e883fb58f386edd827d8c57800b0b9ab4b6661eeab",
}

// n, d, e, p, q, dP, dQ, qInv
var rsa512Hex = [...]string{
	"f28261e9b1762a2468ec9979eb6eb30cff3e8b495978b905369d25ce26d1d7d4" +
		"43108265ce485546a02d9acaaef226cb7ea0b916eeb10b58bcd34191c761d9ad",
	"a1ac4146764ec6c2f09dbba69cf4775dff7f07863ba5d0ae2468c3dec48be536" +
		"e07ddb56185f26c1c6fabb65a3acb722b263e963c3c852514d3993561020b06b",
	"03",
	"f971dfa24843a8548c4031621cd2c2ee10bad716b475bccc7f9ccf72468cc6e9",
	"f8e1d9c26175f2cf697550501c9c5129625003ea948ed3124960151e68a40a25",
	"a64bea6c302d1ae3082acb96bde1d749607c8f64784e7dddaa688a4c2f08849b",
	"a5ebe681964ea1df9ba38ae01312e0c6418aad470db48cb6db9563699b1806c3",
	"60f72ed804adf28ed1ce74c23f9c0f8ca826ac03e733c42c868b11d4c1639834",
}

// p, q, g, y, x
var dsaHex = [...]string{
	"b1d44d7e2e0c52ae43c18a7ddc7c56ceeb473ce935fe325d0a36e67d9054ea4f" +
		"6d62c72090528d52ec6152eb064bc84308bceda8f88d65fa98f0529eec384e62" +
		"d9e9ab77ff449cc18bc542cbee488d9a135b30c34fddfdf78b9d98d40cf454ab" +
		"e5b9b03b5d745456edb59636040511498cd29a954e63e5d81a927a6291be5ea3",
	"c41e911145bb2835d668fac54e7e823001c9d041",
	"0d35a51dafcb22b312b39d6bd1cd3084386884d3e48f59b4cd8dd7154e727287" +
		"1d1ac25bf59adba7efb576c90831c93ec091ac27fd38b3ddc8e1455dfd1a6277" +
		"66a187e1f95ca21a06263dfa81848ed669314c1caab70834bf84967a6d9d895f" +
		"5d7fc09a1fbc5e04e2bfd4e0ffe0d9ce8e6e18bf4067f22ac1adea13a0459725",
	"0b75a010ab18fc550ee5aab8c9f51d6f61923c54e87dcafeb7a210a4e3b81132" +
		"c64557274b35cac9f8a3b2990cacebe33e59b892d7b3ae759ee1cb4c72c2b638" +
		"be6db4227883b89a0b9f85f84b66a9539baae341f8fcfab53cff6c7fe68dec9b" +
		"74d6931d28b03e820332a721d50baa2aff74a911755ff58d094595984405876d",
	"50d833141b7b5b50da60ae9d8e86b67683bb1864",
}
