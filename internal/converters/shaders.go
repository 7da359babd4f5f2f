package converters

// WGSL compute shaders for the device converters.
// Using string constants instead of embed for simplicity.

// workgroupSize is the number of threads per workgroup.
const workgroupSize = 256

// tensorizeShader samples a crop region of packed 8-bit pixels into
// one batch slot of a planar NCHW f32 tensor, nearest-neighbor,
// normalized to [0,1].
//
// layout: 0 = BGR planes, 1 = RGB planes, 2 = single gray plane.
// src_rgba: 0 = BGRA byte order, 1 = RGBA byte order.
const tensorizeShader = `
@group(0) @binding(0) var<storage, read> src: array<u32>;
@group(0) @binding(1) var<storage, read_write> dst: array<f32>;

struct Params {
    src_width: u32,
    crop_x: u32,
    crop_y: u32,
    crop_w: u32,
    crop_h: u32,
    dst_w: u32,
    dst_h: u32,
    channels: u32,
    batch_idx: u32,
    layout: u32,
    src_rgba: u32,
    _pad: u32,
}
@group(0) @binding(2) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let idx = global_id.x;
    let plane = params.dst_w * params.dst_h;
    if (idx >= plane) {
        return;
    }

    let x = idx % params.dst_w;
    let y = idx / params.dst_w;
    let sx = params.crop_x + x * params.crop_w / params.dst_w;
    let sy = params.crop_y + y * params.crop_h / params.dst_h;

    let texel = src[sy * params.src_width + sx];
    let c0 = f32(texel & 0xFFu) / 255.0;
    let g = f32((texel >> 8u) & 0xFFu) / 255.0;
    let c2 = f32((texel >> 16u) & 0xFFu) / 255.0;

    var b = c0;
    var r = c2;
    if (params.src_rgba == 1u) {
        b = c2;
        r = c0;
    }

    let base = params.batch_idx * params.channels * plane;
    if (params.layout == 2u) {
        dst[base + idx] = 0.299 * r + 0.587 * g + 0.114 * b;
    } else if (params.layout == 0u) {
        dst[base + idx] = b;
        dst[base + plane + idx] = g;
        dst[base + 2u * plane + idx] = r;
    } else {
        dst[base + idx] = r;
        dst[base + plane + idx] = g;
        dst[base + 2u * plane + idx] = b;
    }
}
`

// detensorizeShader reads one batch slot of a planar NCHW f32 tensor
// and writes clamped packed 8-bit pixels into the top-left out_w×out_h
// region of a pixel buffer that is frame_width pixels wide.
//
// dst_rgba: 0 = BGRA byte order, 1 = RGBA byte order, 2 = gray in the
// low byte of each texel.
const detensorizeShader = `
@group(0) @binding(0) var<storage, read> src: array<f32>;
@group(0) @binding(1) var<storage, read_write> dst: array<u32>;

struct Params {
    frame_width: u32,
    out_w: u32,
    out_h: u32,
    tensor_w: u32,
    tensor_h: u32,
    channels: u32,
    batch_idx: u32,
    layout: u32,
    dst_rgba: u32,
    _pad0: u32,
    _pad1: u32,
    _pad2: u32,
}
@group(0) @binding(2) var<uniform> params: Params;

fn quantize(v: f32) -> u32 {
    return u32(clamp(v, 0.0, 1.0) * 255.0 + 0.5);
}

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let idx = global_id.x;
    if (idx >= params.out_w * params.out_h) {
        return;
    }

    let x = idx % params.out_w;
    let y = idx / params.out_w;
    let plane = params.tensor_w * params.tensor_h;
    let base = params.batch_idx * params.channels * plane;
    let tidx = y * params.tensor_w + x;

    var r: f32;
    var g: f32;
    var b: f32;
    if (params.layout == 2u) {
        let v = src[base + tidx];
        r = v;
        g = v;
        b = v;
    } else if (params.layout == 0u) {
        b = src[base + tidx];
        g = src[base + plane + tidx];
        r = src[base + 2u * plane + tidx];
    } else {
        r = src[base + tidx];
        g = src[base + plane + tidx];
        b = src[base + 2u * plane + tidx];
    }

    var texel: u32;
    if (params.dst_rgba == 2u) {
        texel = quantize(0.299 * r + 0.587 * g + 0.114 * b);
    } else if (params.dst_rgba == 1u) {
        texel = quantize(r) | (quantize(g) << 8u) | (quantize(b) << 16u) | (255u << 24u);
    } else {
        texel = quantize(b) | (quantize(g) << 8u) | (quantize(r) << 16u) | (255u << 24u);
    }
    dst[y * params.frame_width + x] = texel;
}
`
